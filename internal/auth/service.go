// Package auth はログイン、ログアウト、パスワード再設定画面への遷移を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/comanda/painel/internal/metrics"
	"github.com/comanda/painel/internal/model"
	"github.com/comanda/painel/internal/navigation"
	"github.com/comanda/painel/internal/notify"
	"github.com/comanda/painel/internal/validation"
)

// SessionWriter はログイン結果を保持するセッション。session.Sessionが実装する。
type SessionWriter interface {
	ID() string
	SetToken(ctx context.Context, token string) (model.Role, error)
	Clear(ctx context.Context) error
}

// Service はログインフローを制御する。
// 通知と遷移は1回の操作ごとにそれぞれ最大1回だけ行う。
type Service struct {
	authenticator Authenticator
	notifier      notify.Notifier
	navigator     navigation.Navigator
	metrics       metrics.MetricsCollector
	logger        *slog.Logger
}

// NewService はServiceを生成する。collectorがnilの場合はメトリクスを記録しない。
func NewService(
	authenticator Authenticator,
	notifier notify.Notifier,
	navigator navigation.Navigator,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		authenticator: authenticator,
		notifier:      notifier,
		navigator:     navigator,
		metrics:       collector,
		logger:        logger,
	}
}

// Login は認証情報でログインし、遷移先を返す。
//  1. 入力値を検証する
//  2. 認証APIでトークンを取得する
//  3. トークンを新しいセッションIDで保存し、ロールを導出する（期限切れトークンは拒否）
//  4. 成功通知を表示し、管理者はダッシュボード、それ以外は注文一覧へ遷移する
//
// いずれかの段階で失敗した場合はエラー通知を1件表示し、遷移は行わない。
func (s *Service) Login(ctx context.Context, sess SessionWriter, creds model.Credentials) (navigation.Route, error) {
	if fields := validation.ValidateCredentials(creds); fields != nil {
		s.metrics.RecordLogin(metrics.LoginInvalid)
		s.notifier.Show(notify.Error(model.MsgInvalidLoginForm))
		return "", model.NewValidationError(fields)
	}

	resp, err := s.authenticator.Authenticate(ctx, strings.TrimSpace(creds.Email), creds.Password)
	if err != nil {
		s.metrics.RecordLogin(metrics.LoginFailed)
		s.logger.Info("login failed",
			slog.String("session_id", sess.ID()),
			slog.String("error", err.Error()),
		)
		s.notifier.Show(notify.Error(model.MsgInvalidCredentials))
		return "", err
	}

	role, err := sess.SetToken(ctx, resp.Token)
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.Kind == model.KindUnauthorized {
		s.metrics.RecordLogin(metrics.LoginFailed)
		s.logger.Warn("backend issued an expired token",
			slog.String("session_id", sess.ID()),
		)
		s.notifier.Show(notify.Error(model.MsgSessionExpired))
		return "", apiErr
	}
	if err != nil {
		s.metrics.RecordLogin(metrics.LoginSessionFailure)
		s.logger.Error("failed to store session token",
			slog.String("session_id", sess.ID()),
			slog.String("error", err.Error()),
		)
		s.notifier.Show(notify.Error(model.MsgSessionFailure))
		return "", fmt.Errorf("failed to set session token: %w", err)
	}

	route := navigation.RouteOrders
	if role.IsAdmin() {
		route = navigation.RouteDashboard
	}

	s.metrics.RecordLogin(metrics.LoginSuccess)
	s.logger.Info("user logged in",
		slog.String("session_id", sess.ID()),
		slog.String("role", string(role)),
	)
	s.notifier.Show(notify.Success(model.MsgLoginSuccess))
	s.navigator.Navigate(route)

	return route, nil
}

// ForgotPassword はパスワード再設定画面へ遷移する。バックエンドは呼び出さない。
func (s *Service) ForgotPassword() navigation.Route {
	s.navigator.Navigate(navigation.RouteForgotPassword)
	return navigation.RouteForgotPassword
}

// Logout はセッションを破棄し、ログイン画面へ遷移する。
func (s *Service) Logout(ctx context.Context, sess SessionWriter) error {
	if err := sess.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	s.logger.Info("user logged out", slog.String("session_id", sess.ID()))
	s.navigator.Navigate(navigation.RouteLogin)
	return nil
}
