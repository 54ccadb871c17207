// File: internal/modules/auth/client/permission_client.go
package client

import (
	"context"
	"fmt"

	rts "github.com/ory/keto/proto/ory/keto/relation_tuples/v1alpha2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"chainpulse-self/internal/pkg/log"
)

// 权限模型里的固定命名空间与关系。
const (
	namespacePermissions = "permissions"
	objectResearchPost   = "research_post"
	relationPublish      = "publish"
)

// PermissionClient 封装 Ory Keto 的权限查询 (gRPC Check API)。
// 会话恢复时顺带查询 can_publish，查询失败不影响登录态本身。
type PermissionClient struct {
	readConn    *grpc.ClientConn
	checkClient rts.CheckServiceClient
	logger      log.Logger
}

// NewPermissionClient 创建 Keto 权限客户端
// readAddr: Keto Read gRPC 地址 (例如: "localhost:4466")
func NewPermissionClient(readAddr string, logger log.Logger) (*PermissionClient, error) {
	if readAddr == "" {
		return nil, fmt.Errorf("keto read address cannot be empty")
	}
	if logger == nil {
		logger = log.GetLogger()
	}

	readConn, err := grpc.Dial(readAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to keto read service: %w", err)
	}

	return &PermissionClient{
		readConn:    readConn,
		checkClient: rts.NewCheckServiceClient(readConn),
		logger:      logger.With("component", "permission_client"),
	}, nil
}

// Close 关闭客户端连接
func (k *PermissionClient) Close() error {
	if k.readConn != nil {
		if err := k.readConn.Close(); err != nil {
			return fmt.Errorf("failed to close keto read connection: %w", err)
		}
	}
	return nil
}

// CanPublish 查询用户是否有发布研报的权限。
// 查询失败时返回 false 和错误，由调用方决定降级策略。
func (k *PermissionClient) CanPublish(ctx context.Context, userID string) (bool, error) {
	req := &rts.CheckRequest{
		Namespace: namespacePermissions,
		Object:    objectResearchPost,
		Relation:  relationPublish,
		Subject: &rts.Subject{
			Ref: &rts.Subject_Id{
				Id: "users:" + userID,
			},
		},
	}

	resp, err := k.checkClient.Check(ctx, req)
	if err != nil {
		k.logger.WarnContext(ctx, "Keto 权限查询失败",
			log.String("user_id", userID),
			log.Any("error", err))
		return false, fmt.Errorf("failed to check publish permission: %w", err)
	}

	return resp.Allowed, nil
}
