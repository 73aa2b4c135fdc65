package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/auth-gate/internal/token"
)

// 拒否理由。トークンサービスの分類をそのまま引き継ぎます。
var (
	// ErrNoTokenProvided はクッキーにトークンが存在しないことを表します。
	ErrNoTokenProvided = errors.New("no token provided")
)

// Classify はリクエストを認証済みか否かに分類します。
// 副作用はなく、HTTPレスポンスの決定は呼び出し側に委ねます。
func (m *Manager) Classify(c *gin.Context) (*token.Claims, error) {
	tokenString, err := c.Cookie(TokenCookieName)
	if err != nil || tokenString == "" {
		return nil, ErrNoTokenProvided
	}
	return m.tokens.Verify(tokenString)
}

// RequireSession はセッションを検証するミドルウェアを返します。
// 未認証のリクエストは 401 で打ち切ります。
func (m *Manager) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := m.Classify(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": rejectionMessage(err),
			})
			return
		}

		c.Set(ContextClaimsKey, claims)
		c.Next()
	}
}

// rejectionMessage は拒否理由を表示用メッセージへ変換します。
// どの理由でもレスポンスの形は同一です。
func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoTokenProvided):
		return "no token provided"
	case errors.Is(err, token.ErrExpired):
		return "session expired"
	default:
		return "invalid token"
	}
}
