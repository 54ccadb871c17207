package tasks

import (
	"context"
	"database/sql"
	"time"

	"github.com/robfig/cron/v3"

	"chainpulse-self/internal/pkg/log"
	"chainpulse-self/internal/pkg/sessioncache"
	"chainpulse-self/internal/repository/impl"
	"chainpulse-self/internal/repository/interfaces"
)

// 登录历史只留 90 天，够做风控回溯就行
const historyRetentionDays = 90

// RetentionTask 定时清理任务：过期登录历史 + 本地会话缓存
type RetentionTask struct {
	historyRepo interfaces.LoginHistoryRepository
	cache       *sessioncache.Cache
	logger      log.Logger
	cron        *cron.Cron
}

// NewRetentionTask 创建定时清理任务实例。db、cache 均可为 nil（对应清理跳过）。
func NewRetentionTask(db *sql.DB, cache *sessioncache.Cache, logger log.Logger) *RetentionTask {
	t := &RetentionTask{
		cache:  cache,
		logger: logger,
	}
	if db != nil {
		t.historyRepo = impl.NewLoginHistoryRepository(db)
	}
	return t
}

// Start 启动定时任务
func (t *RetentionTask) Start() {
	t.cron = cron.New(cron.WithSeconds())

	// 每天凌晨3点清理过期登录历史
	_, err := t.cron.AddFunc("0 0 3 * * *", func() {
		t.logger.Info("【定时任务】开始清理过期登录历史")
		t.cleanupLoginHistory()
	})
	if err != nil {
		t.logger.Error("【定时任务】添加登录历史清理任务失败", err)
		return
	}

	// 每10分钟清扫一次过期会话缓存
	_, err = t.cron.AddFunc("0 */10 * * * *", func() {
		t.sweepSessionCache()
	})
	if err != nil {
		t.logger.Error("【定时任务】添加会话缓存清扫任务失败", err)
		return
	}

	t.cron.Start()
	t.logger.Info("【定时任务】已启动 - 登录历史保留", "retention_days", historyRetentionDays)
}

// Stop 停止定时任务
func (t *RetentionTask) Stop() {
	if t.cron != nil {
		t.cron.Stop()
	}
}

func (t *RetentionTask) cleanupLoginHistory() {
	if t.historyRepo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -historyRetentionDays)
	deleted, err := t.historyRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		t.logger.Error("【定时任务】清理登录历史失败", err)
		return
	}

	t.logger.Info("【定时任务】登录历史清理完成",
		"deleted_count", deleted,
		"cutoff", cutoff.Format("2006-01-02 15:04:05"))
}

func (t *RetentionTask) sweepSessionCache() {
	if t.cache == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if evicted := t.cache.Sweep(ctx); evicted > 0 {
		t.logger.Info("【定时任务】清扫过期会话缓存", "evicted_count", evicted)
	}
}
