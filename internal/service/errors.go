package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	InternalServerError = 500
)

var (
	ErrParamInvalid        = errors.New("参数错误")
	ErrStaffNotFound       = errors.New("客服账号不存在")
	ErrStaffExist          = errors.New("客服账号已存在")
	ErrPasswordIncorrect   = errors.New("密码错误")
	ErrShopNotFound        = errors.New("店铺不存在")
	ErrShopExist           = errors.New("店铺已存在")
	ErrShopNotOwned        = errors.New("无权访问该店铺")
	ErrConversationInvalid = errors.New("会话标识不合法")
	ErrConversationMissing = errors.New("会话不存在")
	ErrMessageEmpty        = errors.New("消息内容不能为空")
	ErrFileNotSupported    = errors.New("不支持的文件类型")
	ErrChannelAuthFailed   = errors.New("推送通道鉴权失败")
	UnauthorizedError      = errors.New("权限不足")
	UnExpectedError        = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:        BadRequest,
	ErrStaffNotFound:       NotFound,
	ErrStaffExist:          BadRequest,
	ErrPasswordIncorrect:   Unauthorized,
	ErrShopNotFound:        NotFound,
	ErrShopExist:           BadRequest,
	ErrShopNotOwned:        Forbidden,
	ErrConversationInvalid: BadRequest,
	ErrConversationMissing: NotFound,
	ErrMessageEmpty:        BadRequest,
	ErrFileNotSupported:    BadRequest,
	ErrChannelAuthFailed:   Unauthorized,
	UnauthorizedError:      Unauthorized,
	UnExpectedError:        InternalServerError,
}
