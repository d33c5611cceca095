package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/comanda/painel/internal/model"
	"github.com/comanda/painel/internal/notify"
)

// ErrorBody はエラーレスポンスのerror部分。
type ErrorBody struct {
	Kind    string             `json:"kind"`
	Message string             `json:"message"`
	Fields  []model.FieldError `json:"fields,omitempty"`
}

// ErrorEnvelope はエラーレスポンスの統一フォーマット。
// notificationsにはUIにそのまま表示する通知を含める。
type ErrorEnvelope struct {
	Error         ErrorBody             `json:"error"`
	Notifications []notify.Notification `json:"notifications"`
}

// DataEnvelope は成功レスポンスの統一フォーマット。
type DataEnvelope struct {
	Data          any                   `json:"data"`
	Notifications []notify.Notification `json:"notifications"`
}

// StatusFor はエラーに対応するHTTPステータスコードを返す。
//   - backend: バックエンドのステータス
//   - authentication / unauthorized: 401
//   - validation: 400
//   - transport: 502
//   - それ以外: 500
func StatusFor(err error) int {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		return http.StatusInternalServerError
	}

	switch apiErr.Kind {
	case model.KindBackend:
		if apiErr.Status >= http.StatusBadRequest {
			return apiErr.Status
		}
		return http.StatusBadGateway
	case model.KindAuthentication, model.KindUnauthorized:
		return http.StatusUnauthorized
	case model.KindValidation:
		return http.StatusBadRequest
	case model.KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON はJSONレスポンスを書き込む。
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// WriteData は成功レスポンスを統一フォーマットで書き込む。
func WriteData(w http.ResponseWriter, statusCode int, data any, notifications []notify.Notification) {
	WriteJSON(w, statusCode, DataEnvelope{
		Data:          data,
		Notifications: nonNil(notifications),
	})
}

// WriteErrorResponse はエラーを統一フォーマットで書き込む。
// *model.APIError以外のエラーは内容を隠して内部エラーとして返す。
func WriteErrorResponse(w http.ResponseWriter, err error, notifications []notify.Notification) {
	body := ErrorBody{Kind: "internal", Message: model.MsgInternalError}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		body = ErrorBody{
			Kind:    string(apiErr.Kind),
			Message: apiErr.Message,
			Fields:  apiErr.Fields,
		}
	}

	WriteJSON(w, StatusFor(err), ErrorEnvelope{
		Error:         body,
		Notifications: nonNil(notifications),
	})
}

// writeErrorNotice はエラー通知1件を含むエラーレスポンスを書き込む。
// ミドルウェアがハンドラーに到達する前に拒否する場合に使用する。
func writeErrorNotice(w http.ResponseWriter, statusCode int, kind, message string) {
	WriteJSON(w, statusCode, ErrorEnvelope{
		Error:         ErrorBody{Kind: kind, Message: message},
		Notifications: []notify.Notification{notify.Error(message)},
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	writeErrorNotice(w, http.StatusInternalServerError, "internal", model.MsgInternalError)
}

func nonNil(ns []notify.Notification) []notify.Notification {
	if ns == nil {
		return []notify.Notification{}
	}
	return ns
}
