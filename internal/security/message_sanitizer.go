// Package security はアプリケーションのセキュリティ機能を提供する。
//
// MessageSanitizer はバックエンドから受け取ったエラーメッセージを
// ユーザーに表示する前に検査する。通知はJSONのテキストとして返すため、
// 通常のメッセージは "<nome>" のような山括弧を含めてそのまま表示する。
// HTML文書や実行可能なマークアップ（プロキシのエラーページ等）だけを
// bluemondayのStrictPolicyでプレーンテキスト化する。
package security

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// MessageSanitizer はユーザー向けメッセージのサニタイズ機能のインターフェース。
type MessageSanitizer interface {
	// Sanitize は表示用のメッセージを返す。
	// 通常のテキストは変更しない。HTML文書やscript等を含む場合のみタグを除去する。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(message string) string
}

// markupPattern はタグ除去の対象とするHTML文書・実行可能マークアップの開始タグ。
var markupPattern = regexp.MustCompile(`(?i)<\s*(!doctype|html|head|body|script|style|iframe|object|embed|svg|a\s)`)

// messageSanitizer はMessageSanitizerの実装。
// bluemondayのポリシーはスレッドセーフに利用できる。
type messageSanitizer struct {
	policy *bluemonday.Policy
}

// NewMessageSanitizer はMessageSanitizerの新しいインスタンスを生成する。
func NewMessageSanitizer() *messageSanitizer {
	return &messageSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はメッセージを表示用に整える。
func (s *messageSanitizer) Sanitize(message string) string {
	if !markupPattern.MatchString(message) {
		return message
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(message)))
}
