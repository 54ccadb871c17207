package interfaces

import (
	"context"
	"time"

	"chainpulse-self/internal/repository/entity"
)

// LoginHistoryQueryParams 登录历史查询参数
type LoginHistoryQueryParams struct {
	UserID   *string // 用户ID
	Provider *string // 登录提供方
	Status   *string // 登录状态
	Limit    int     // 每页数量
	Offset   int     // 偏移量
}

// LoginHistoryRepository 登录历史仓储接口
type LoginHistoryRepository interface {
	// Create 写入一条登录历史
	Create(ctx context.Context, record *entity.LoginHistory) error

	// List 查询登录历史列表
	List(ctx context.Context, params LoginHistoryQueryParams) ([]*entity.LoginHistory, int64, error)

	// CountRecentFailures 统计某用户近期失败次数
	CountRecentFailures(ctx context.Context, userID string, since time.Time) (int64, error)

	// DeleteOlderThan 删除早于指定时间的历史，返回删除条数
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
