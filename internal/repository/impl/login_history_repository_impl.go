package impl

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/aarondl/sqlboiler/v4/queries"

	"chainpulse-self/internal/repository/entity"
	"chainpulse-self/internal/repository/interfaces"
)

type loginHistoryRepositoryImpl struct {
	db *sql.DB
}

// NewLoginHistoryRepository 创建登录历史仓储实现
func NewLoginHistoryRepository(db *sql.DB) interfaces.LoginHistoryRepository {
	return &loginHistoryRepositoryImpl{db: db}
}

func (r *loginHistoryRepositoryImpl) Create(ctx context.Context, record *entity.LoginHistory) error {
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now()
	}

	err := queries.Raw(
		`INSERT INTO login_history (user_id, provider, status, fail_reason, occurred_at, ip_address, user_agent)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		record.UserID, record.Provider, record.Status, record.FailReason,
		record.OccurredAt, record.IPAddress, record.UserAgent,
	).Bind(ctx, r.db, record)
	if err != nil {
		return fmt.Errorf("写入登录历史失败: %w", err)
	}

	return nil
}

func (r *loginHistoryRepositoryImpl) List(ctx context.Context, params interfaces.LoginHistoryQueryParams) ([]*entity.LoginHistory, int64, error) {
	var conditions []string
	var args []interface{}

	appendCondition := func(column string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.UserID != nil {
		appendCondition("user_id", *params.UserID)
	}
	if params.Provider != nil {
		appendCondition("provider", *params.Provider)
	}
	if params.Status != nil {
		appendCondition("status", *params.Status)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total struct {
		Count int64 `boil:"count"`
	}
	err := queries.Raw("SELECT COUNT(*) AS count FROM login_history"+where, args...).
		Bind(ctx, r.db, &total)
	if err != nil {
		return nil, 0, fmt.Errorf("查询登录历史总数失败: %w", err)
	}

	query := "SELECT * FROM login_history" + where + " ORDER BY occurred_at DESC"
	if params.Limit > 0 {
		args = append(args, params.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if params.Offset > 0 {
		args = append(args, params.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	var records []*entity.LoginHistory
	if err := queries.Raw(query, args...).Bind(ctx, r.db, &records); err != nil {
		return nil, 0, fmt.Errorf("查询登录历史列表失败: %w", err)
	}

	return records, total.Count, nil
}

func (r *loginHistoryRepositoryImpl) CountRecentFailures(ctx context.Context, userID string, since time.Time) (int64, error) {
	var result struct {
		Count int64 `boil:"count"`
	}
	err := queries.Raw(
		`SELECT COUNT(*) AS count FROM login_history
		 WHERE user_id = $1 AND status = $2 AND occurred_at >= $3`,
		userID, string(entity.LoginStatusFailed), since,
	).Bind(ctx, r.db, &result)
	if err != nil {
		return 0, fmt.Errorf("统计登录失败次数失败: %w", err)
	}

	return result.Count, nil
}

func (r *loginHistoryRepositoryImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := queries.Raw(
		"DELETE FROM login_history WHERE occurred_at < $1", cutoff,
	).ExecContext(ctx, r.db)
	if err != nil {
		return 0, fmt.Errorf("清理登录历史失败: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("读取清理结果失败: %w", err)
	}

	return deleted, nil
}

// NullableString 把可选文本转为 null.String。
func NullableString(s string) null.String {
	if s == "" {
		return null.String{}
	}
	return null.StringFrom(s)
}
