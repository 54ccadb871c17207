package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// evmAddressPattern 以太坊系钱包地址：0x 前缀 + 40 位十六进制
var evmAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// CustomValidator wraps go-playground validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(400, err.Error())
	}
	return nil
}

// New creates a new custom validator instance
func New() echo.Validator {
	v := validator.New()
	// 钱包登录请求里的 address 字段使用该标签
	_ = v.RegisterValidation("evm_address", func(fl validator.FieldLevel) bool {
		return evmAddressPattern.MatchString(fl.Field().String())
	})
	return &CustomValidator{
		validator: v,
	}
}

// IsEVMAddress 独立的地址格式判断，供服务层在绑定之外复用
func IsEVMAddress(address string) bool {
	return evmAddressPattern.MatchString(address)
}
