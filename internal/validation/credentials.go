// Package validation はフォーム入力の検証を提供する。
package validation

import (
	"errors"
	"strings"

	"github.com/comanda/painel/internal/model"
	"github.com/go-playground/validator/v10"
)

// validate はスレッドセーフなため、パッケージで1つだけ保持する。
var validate = validator.New(validator.WithRequiredStructEnabled())

// fieldNames は構造体フィールド名からフォーム項目名への対応。
var fieldNames = map[string]string{
	"Email":    "email",
	"Password": "password",
}

// ValidateCredentials はログインフォームの入力値を検証する。
// 有効な場合はnil、無効な場合は項目ごとのエラー一覧を返す。
//
//   - email: 必須かつメールアドレス形式
//   - password: 必須
func ValidateCredentials(c model.Credentials) []model.FieldError {
	c.Email = strings.TrimSpace(c.Email)

	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []model.FieldError{{Field: "form", Message: err.Error()}}
	}

	fields := make([]model.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, model.FieldError{
			Field:   fieldName(fe.StructField()),
			Message: messageFor(fe.Tag()),
		})
	}
	return fields
}

func fieldName(structField string) string {
	if name, ok := fieldNames[structField]; ok {
		return name
	}
	return strings.ToLower(structField)
}

func messageFor(tag string) string {
	switch tag {
	case "required":
		return "campo obrigatório"
	case "email":
		return "e-mail inválido"
	default:
		return "valor inválido"
	}
}
