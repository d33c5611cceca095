// Package notify はユーザー向け通知（スナックバー相当）を提供する。
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// 通知の表示設定
const (
	DefaultDuration   = 3 * time.Second
	DefaultAction     = "X"
	HorizontalRight   = "right"
	VerticalTop       = "top"
	PanelClassSuccess = "msg-success"
	PanelClassError   = "msg-error"
)

// Notification はユーザーに表示する1件の通知を表す。
type Notification struct {
	Message    string `json:"message"`
	IsError    bool   `json:"is_error"`
	Action     string `json:"action"`
	DurationMs int    `json:"duration_ms"`
	Horizontal string `json:"horizontal_position"`
	Vertical   string `json:"vertical_position"`
	PanelClass string `json:"panel_class"`
}

// Success は成功通知を生成する。
func Success(msg string) Notification {
	return newNotification(msg, false)
}

// Error はエラー通知を生成する。
func Error(msg string) Notification {
	return newNotification(msg, true)
}

func newNotification(msg string, isError bool) Notification {
	class := PanelClassSuccess
	if isError {
		class = PanelClassError
	}
	return Notification{
		Message:    msg,
		IsError:    isError,
		Action:     DefaultAction,
		DurationMs: int(DefaultDuration / time.Millisecond),
		Horizontal: HorizontalRight,
		Vertical:   VerticalTop,
		PanelClass: class,
	}
}

// Notifier は通知を表示する仕組みのインターフェース。
type Notifier interface {
	Show(n Notification)
}

// Recorder はリクエスト単位で通知を蓄積するNotifier。
// HTTPハンドラーはレスポンスに蓄積した通知を含めてUIへ返す。
type Recorder struct {
	mu            sync.Mutex
	notifications []Notification
}

// NewRecorder はRecorderを生成する。
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Show は通知を蓄積する。
func (r *Recorder) Show(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
}

// Notifications は蓄積した通知のコピーを返す。通知がない場合は空スライスを返す。
func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.notifications))
	copy(out, r.notifications)
	return out
}

// Multi は複数のNotifierへ同じ通知を配信する。
type Multi []Notifier

// Show は各Notifierへ順に通知する。nilは読み飛ばす。
func (m Multi) Show(n Notification) {
	for _, notifier := range m {
		if notifier != nil {
			notifier.Show(n)
		}
	}
}

// LogNotifier は通知を構造化ログに出力するNotifier。
// Recorderと組み合わせて、UIへ返した通知をログにも残す。
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier はLogNotifierを生成する。loggerがnilの場合はslog.Default()を使う。
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Show は通知をログに出力する。エラー通知はWARNレベルで出力する。
func (l *LogNotifier) Show(n Notification) {
	level := slog.LevelInfo
	if n.IsError {
		level = slog.LevelWarn
	}
	l.logger.Log(context.Background(), level, "notification",
		slog.String("message", n.Message),
		slog.String("panel_class", n.PanelClass),
	)
}
