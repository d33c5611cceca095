package notify

import (
	"errors"

	"github.com/comanda/painel/internal/model"
)

// MessageSanitizer はバックエンド由来のメッセージを表示前に無害化する。
type MessageSanitizer interface {
	Sanitize(message string) string
}

// ErrorHandler はAPI呼び出しの失敗をユーザー通知に変換する。
// 通知は副作用として行い、受け取ったエラーはそのまま呼び出し元に返す。
type ErrorHandler struct {
	notifier  Notifier
	sanitizer MessageSanitizer
}

// NewErrorHandler はErrorHandlerを生成する。sanitizerがnilの場合はメッセージをそのまま表示する。
func NewErrorHandler(notifier Notifier, sanitizer MessageSanitizer) *ErrorHandler {
	return &ErrorHandler{
		notifier:  notifier,
		sanitizer: sanitizer,
	}
}

// Handle はエラーに応じたエラー通知を1件表示し、errをそのまま返す。
//   - ステータス付き（バックエンドエラー等）: バックエンドのメッセージを表示
//   - ステータスなし（通信エラー等）: 接続失敗の定型メッセージを表示
//
// errがnilの場合は何もしない。
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.HasStatus() {
		h.notifier.Show(Error(h.sanitize(apiErr.Message)))
		return err
	}

	h.notifier.Show(Error(model.MsgConnectionFailure))
	return err
}

func (h *ErrorHandler) sanitize(msg string) string {
	if h.sanitizer == nil {
		return msg
	}
	return h.sanitizer.Sanitize(msg)
}
