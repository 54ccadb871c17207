// Package docs ChainPulse 账户网关 API 文档。
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/session": {
            "get": {
                "description": "解析网关 Cookie 并回源平台确认登录态，失败一律收敛为未登录",
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "查询当前登录态",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/handler.SessionResponse"}
                    }
                }
            }
        },
        "/auth/wallet/message": {
            "get": {
                "description": "返回钱包登录用的固定签名文案",
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "获取钱包签名文案",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/handler.SignMessageResponse"}
                    }
                }
            }
        },
        "/auth/wallet/login": {
            "post": {
                "description": "校验地址与签名后向平台兑换会话，签名缺失直接拒绝",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "钱包签名登录",
                "parameters": [{
                    "description": "钱包登录请求",
                    "name": "request",
                    "in": "body",
                    "required": true,
                    "schema": {"$ref": "#/definitions/handler.WalletLoginRequest"}
                }],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/handler.SessionResponse"}
                    },
                    "401": {
                        "description": "Unauthorized"
                    }
                }
            }
        },
        "/auth/social/login": {
            "post": {
                "description": "第三方登录兑换；携带 error_code 时仅转译上游失败，不发起兑换",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "第三方登录",
                "parameters": [{
                    "description": "第三方登录请求",
                    "name": "request",
                    "in": "body",
                    "required": true,
                    "schema": {"$ref": "#/definitions/handler.SocialLoginRequest"}
                }],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/handler.SessionResponse"}
                    },
                    "401": {
                        "description": "Unauthorized"
                    }
                }
            }
        },
        "/auth/email/login": {
            "post": {
                "description": "邮箱密码经身份服务校验后走统一兑换主干",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "邮箱密码登录",
                "parameters": [{
                    "description": "邮箱登录请求",
                    "name": "request",
                    "in": "body",
                    "required": true,
                    "schema": {"$ref": "#/definitions/handler.EmailLoginRequest"}
                }],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/handler.SessionResponse"}
                    },
                    "401": {
                        "description": "Unauthorized"
                    }
                }
            }
        },
        "/auth/history": {
            "get": {
                "description": "返回当前登录用户最近的登录历史，按时间倒序",
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "查询登录历史",
                "parameters": [{
                    "description": "返回条数，默认 20，上限 100",
                    "name": "limit",
                    "in": "query",
                    "type": "integer"
                }],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/handler.LoginHistoryResponse"}
                    },
                    "401": {
                        "description": "Unauthorized"
                    }
                }
            }
        },
        "/auth/logout": {
            "post": {
                "description": "登出提供方与平台并无条件清理本地会话，始终返回成功",
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "登出",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/handler.SessionResponse"}
                    }
                }
            }
        }
    },
    "definitions": {
        "handler.SessionResponse": {
            "type": "object",
            "properties": {
                "state": {"type": "string", "enum": ["unauthenticated", "authenticated"]},
                "user": {"type": "object"}
            }
        },
        "handler.SignMessageResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"}
            }
        },
        "handler.WalletLoginRequest": {
            "type": "object",
            "required": ["address", "signature"],
            "properties": {
                "address": {"type": "string"},
                "chain_id": {"type": "integer"},
                "signature": {"type": "string"}
            }
        },
        "handler.SocialLoginRequest": {
            "type": "object",
            "required": ["provider"],
            "properties": {
                "provider": {"type": "string", "enum": ["google", "apple"]},
                "provider_uid": {"type": "string"},
                "id_token": {"type": "string"},
                "email": {"type": "string"},
                "display_name": {"type": "string"},
                "photo_url": {"type": "string"},
                "error_code": {"type": "string"}
            }
        },
        "handler.EmailLoginRequest": {
            "type": "object",
            "required": ["identifier", "password"],
            "properties": {
                "identifier": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "handler.LoginHistoryResponse": {
            "type": "object",
            "properties": {
                "items": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "provider": {"type": "string"},
                            "success": {"type": "boolean"},
                            "fail_reason": {"type": "string"},
                            "client_ip": {"type": "string"},
                            "occurred_at": {"type": "string", "format": "date-time"}
                        }
                    }
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "ChainPulse Account Gateway API",
	Description:      "加密资产研究平台账户网关：多提供方登录、会话解析与登出",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
