package impl

import (
	"context"
	"time"

	"chainpulse-self/internal/modules/auth/service"
	"chainpulse-self/internal/repository/entity"
	"chainpulse-self/internal/repository/interfaces"
)

// LoginHistoryRecorder 把认证模块的登录历史落到仓储。
type LoginHistoryRecorder struct {
	repo interfaces.LoginHistoryRepository
}

// NewLoginHistoryRecorder 创建登录历史记录器
func NewLoginHistoryRecorder(repo interfaces.LoginHistoryRepository) *LoginHistoryRecorder {
	return &LoginHistoryRecorder{repo: repo}
}

func (r *LoginHistoryRecorder) Record(ctx context.Context, entry *service.LoginHistoryEntry) error {
	status := entity.LoginStatusSuccess
	if !entry.Success {
		status = entity.LoginStatusFailed
	}

	return r.repo.Create(ctx, &entity.LoginHistory{
		UserID:     entry.UserID,
		Provider:   entry.Provider,
		Status:     string(status),
		FailReason: NullableString(entry.FailReason),
		OccurredAt: entry.OccurredAt,
		IPAddress:  entry.ClientIP,
		UserAgent:  NullableString(entry.UserAgent),
	})
}

// RecentFailures 统计某标识自 since 以来记录的失败次数。
func (r *LoginHistoryRecorder) RecentFailures(ctx context.Context, identifier string, since time.Time) (int64, error) {
	return r.repo.CountRecentFailures(ctx, identifier, since)
}

// ListByUser 返回某用户最近的登录历史，按时间倒序。
func (r *LoginHistoryRecorder) ListByUser(ctx context.Context, userID string, limit int) ([]*service.LoginHistoryEntry, error) {
	records, _, err := r.repo.List(ctx, interfaces.LoginHistoryQueryParams{
		UserID: &userID,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}

	entries := make([]*service.LoginHistoryEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, &service.LoginHistoryEntry{
			UserID:     record.UserID,
			Provider:   record.Provider,
			Success:    record.Status == string(entity.LoginStatusSuccess),
			FailReason: record.FailReason.String,
			ClientIP:   record.IPAddress,
			UserAgent:  record.UserAgent.String,
			OccurredAt: record.OccurredAt,
		})
	}
	return entries, nil
}
