// 包 auth 负责解析厂商会话令牌：
// - 来源优先级：命令行 > 环境变量 > .env 文件
// - 令牌本体是面板签发的 JWT，这里只做未验签的过期检查用于提示
package auth

import (
	"errors"
	"fmt"
	"os"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
)

// ErrNoToken 表示任何来源都未提供令牌；整个导出应当就此中止。
var ErrNoToken = errors.New("api token not found")

// ResolveToken 按优先级取令牌。envFile 为空时尝试当前目录 .env（不存在则忽略）。
func ResolveToken(flagToken, envName, envFile string) (string, error) {
	if flagToken != "" {
		return flagToken, nil
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return "", fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load() // .env 可选
	}
	if v := os.Getenv(envName); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: set %s or pass -token", ErrNoToken, envName)
}

// InspectExpiry 不验签解析 JWT 并返回过期时间；令牌不是合法 JWT 或无 exp 时返回零值。
// 厂商面板直接把会话 JWT 交给浏览器，这里拿不到签名密钥，只能做提示性检查。
func InspectExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("parse token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, nil
	}
	return exp.Time, nil
}

// Expired 判断令牌是否已过期；无法解析或无 exp 视为未过期（交由接口侧报 401）。
func Expired(token string, now time.Time) bool {
	exp, err := InspectExpiry(token)
	if err != nil || exp.IsZero() {
		return false
	}
	return exp.Before(now)
}
