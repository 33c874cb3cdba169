package security

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	JWTSecret         string = "ShopTalk"
	JWTExpirationTime        = time.Hour * 24
)

// StaffClaims 定义了 Token 中携带的客服人员身份信息
type StaffClaims struct {
	StaffID uint64 `json:"staff_id"`
	jwt.RegisteredClaims
}
