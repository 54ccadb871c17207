// File: internal/modules/auth/service/logout_service.go
package service

import (
	"context"

	"chainpulse-self/internal/pkg/log"
	"chainpulse-self/internal/pkg/notify"
)

// Logout 执行登出。
//
// 四个步骤按序执行，但任何一步失败都不会阻止后面的步骤：
//  1. 作废身份服务令牌（仅邮箱登录持有）
//  2. 通知平台作废会话
//  3. 清除网关本地的会话记录与缓存 —— 无条件执行
//  4. 广播登出事件
//
// 对调用方而言登出永远成功：即使平台返回 500，本地状态也已经清干净。
func (s *AuthService) Logout(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}

	record, err := s.store.Get(ctx, sessionID)
	if err != nil {
		// 没有记录也要把本地残留清掉，保持登出幂等
		s.clearLocal(ctx, sessionID, "")
		return
	}

	// 1. 身份服务登出
	if s.identity != nil && record.ProviderToken != "" {
		if appErr := s.identity.Logout(ctx, record.ProviderToken); appErr != nil {
			s.logger.WarnContext(ctx, "身份服务登出失败",
				log.String("session_id", sessionID),
				log.Any("error", appErr))
		}
	}

	// 2. 平台登出
	if record.PlatformCookie != "" {
		if appErr := s.platform.Logout(ctx, record.PlatformCookie); appErr != nil {
			s.logger.WarnContext(ctx, "平台登出失败，继续本地清理",
				log.String("session_id", sessionID),
				log.Int("api_code", appErr.Code.ToInt()))
		}
	}

	// 3. 无条件本地清理
	s.clearLocal(ctx, sessionID, record.Provider)

	// 4. 广播
	if err := notify.PublishAuthEvent(ctx, notify.SubjectAuthLogout, notify.AuthEvent{
		UserID:    record.UserID,
		SessionID: sessionID,
		Provider:  record.Provider,
	}); err != nil {
		s.logger.WarnContext(ctx, "发布登出事件失败", log.Any("error", err))
	}

	s.logger.InfoContext(ctx, "登出完成",
		log.String("session_id", sessionID),
		log.String("user_id", record.UserID))
}

func (s *AuthService) clearLocal(ctx context.Context, sessionID, provider string) {
	if err := s.store.Delete(ctx, sessionID); err != nil {
		s.logger.WarnContext(ctx, "删除会话记录失败",
			log.String("session_id", sessionID),
			log.Any("error", err))
	}
	if s.cache != nil {
		s.cache.Delete(ctx, provider, sessionID, "logout")
	}
}
