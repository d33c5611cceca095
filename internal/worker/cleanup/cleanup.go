// Package cleanup は期限切れログインセッションの定期削除ジョブを提供する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultInterval は削除ジョブの既定の実行間隔。
const DefaultInterval = time.Hour

// Sweeper は期限切れセッションを削除し、削除件数を返す。session.Managerが実装する。
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// CleanupJob は期限切れセッションの削除ジョブ。
// 削除対象がなくてもエラーにはならない。
type CleanupJob struct {
	sweeper  Sweeper
	logger   *slog.Logger
	Interval time.Duration // 実行間隔（デフォルト: 1時間）
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(sweeper Sweeper, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		sweeper:  sweeper,
		logger:   logger,
		Interval: DefaultInterval,
	}
}

// Run は期限切れセッションを1回削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deletedCount, err := j.sweeper.Sweep(ctx)
	if err != nil {
		j.logger.Error("セッションクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("セッションクリーンアップの実行に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("セッションクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// Start は起動直後に1回実行し、以降はIntervalごとに実行する。
// ctxがキャンセルされるまでブロックする。失敗はログに記録して継続する。
func (j *CleanupJob) Start(ctx context.Context) {
	interval := j.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	_ = j.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
