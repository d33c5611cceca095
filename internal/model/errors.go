package model

import (
	"fmt"
	"net/http"
)

// ErrorKind はエラーの分類を表す。
type ErrorKind string

// エラー分類
const (
	// KindValidation はクライアント側の入力検証エラー。
	KindValidation ErrorKind = "validation"
	// KindAuthentication は認証情報の誤り。どの項目が誤っているかは返さない。
	KindAuthentication ErrorKind = "authentication"
	// KindBackend はバックエンドがステータス付きで返したエラー。
	KindBackend ErrorKind = "backend"
	// KindTransport はステータスを伴わない通信レベルの失敗。
	KindTransport ErrorKind = "transport"
	// KindUnauthorized はトークン未設定または期限切れ。
	KindUnauthorized ErrorKind = "unauthorized"
)

// ユーザー向けメッセージ
const (
	MsgLoginSuccess       = "O login foi efetuado com sucesso!"
	MsgInvalidCredentials = "Credenciais incorretas, tente novamente"
	MsgConnectionFailure  = "Falha de conexão com a API!"
	MsgSessionExpired     = "Sessão expirada, faça login novamente."
	MsgInvalidLoginForm   = "Preencha e-mail e senha corretamente."
	MsgSessionFailure     = "Não foi possível iniciar a sessão, tente novamente."
	MsgTooManyRequests    = "Muitas requisições, aguarde e tente novamente."
	MsgInternalError      = "Erro interno, tente novamente mais tarde."
	MsgForbidden          = "Requisição recusada, recarregue a página e tente novamente."
	MsgInvalidRequest     = "Dados inválidos, verifique e tente novamente."
)

// FieldError は項目単位の検証エラーを表す。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError は統一エラーフォーマットを表す。
// Statusはバックエンドが応答した場合のみ0以外になる。
type APIError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Fields  []FieldError
	Err     error // 下位のエラー（通信エラー等）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("[%s %d] %s", e.Kind, e.Status, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap は下位のエラーを返す。
func (e *APIError) Unwrap() error {
	return e.Err
}

// HasStatus はバックエンドからステータス付きの応答があったかを返す。
func (e *APIError) HasStatus() bool {
	return e.Status != 0
}

// NewBackendError はバックエンドエラーを生成する。
// メッセージが空の場合はHTTPステータステキストで補完する。
func NewBackendError(status int, message string) *APIError {
	if message == "" {
		message = http.StatusText(status)
	}
	return &APIError{
		Kind:    KindBackend,
		Status:  status,
		Message: message,
	}
}

// NewTransportError は通信エラーを生成する。
func NewTransportError(err error) *APIError {
	return &APIError{
		Kind:    KindTransport,
		Message: MsgConnectionFailure,
		Err:     err,
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(fields []FieldError) *APIError {
	return &APIError{
		Kind:    KindValidation,
		Message: MsgInvalidLoginForm,
		Fields:  fields,
	}
}

// NewAuthenticationError は認証失敗エラーを生成する。
// 認証情報の列挙を防ぐため、バックエンドの詳細は含めない。
func NewAuthenticationError(status int) *APIError {
	return &APIError{
		Kind:    KindAuthentication,
		Status:  status,
		Message: MsgInvalidCredentials,
	}
}

// NewUnauthorizedError はセッション未認証・期限切れエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Kind:    KindUnauthorized,
		Status:  http.StatusUnauthorized,
		Message: MsgSessionExpired,
	}
}
