// Package auth は認証エンドポイントとセッション検証ミドルウェアを提供します。
package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/auth-gate/internal/audit"
	"github.com/yourusername/auth-gate/internal/config"
	"github.com/yourusername/auth-gate/internal/token"
	"github.com/yourusername/auth-gate/internal/user"
)

// TokenCookieName はセッショントークンを運ぶクッキー名です。
const TokenCookieName = "token"

// ContextClaimsKey は、ハンドラー間で検証済みクレームを共有するためのキーです。
const ContextClaimsKey = "auth.claims"

// UserStore はユーザーレコードの永続化に必要な操作です。
type UserStore interface {
	Exists(ctx context.Context, username, email string) (bool, error)
	Create(ctx context.Context, u *user.User) error
	FindByLogin(ctx context.Context, login string) (*user.User, error)
}

// PasswordHasher はパスワードのハッシュ化と照合に必要な操作です。
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hashedValue string) (bool, error)
}

// TokenService はセッショントークンの発行と検証に必要な操作です。
type TokenService interface {
	Issue(userID, username string) (string, error)
	Verify(tokenString string) (*token.Claims, error)
	TTL() time.Duration
}

// Manager は認証処理をまとめた構造体です。
type Manager struct {
	cfg      *config.Config
	store    UserStore
	hasher   PasswordHasher
	tokens   TokenService
	recorder *audit.Recorder
}

// NewManager は認証マネージャーを作成します。recorder は nil でも構いません。
func NewManager(cfg *config.Config, store UserStore, hasher PasswordHasher, tokens TokenService, recorder *audit.Recorder) *Manager {
	return &Manager{
		cfg:      cfg,
		store:    store,
		hasher:   hasher,
		tokens:   tokens,
		recorder: recorder,
	}
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register は POST /register のハンドラーです。
func (m *Manager) Register(c *gin.Context) {
	var req registerRequest
	// 欠落フィールドも空文字列も同じバリデーションエラーとして扱う
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "all fields must be present",
		})
		return
	}

	exists, err := m.store.Exists(c.Request.Context(), req.Username, req.Email)
	if err != nil {
		m.internalError(c)
		return
	}
	if exists {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "user exists",
		})
		return
	}

	hashed, err := m.hasher.Hash(req.Password)
	if err != nil {
		m.internalError(c)
		return
	}

	newUser := &user.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashed,
		CreatedAt:    time.Now().UTC(),
	}
	if err := m.store.Create(c.Request.Context(), newUser); err != nil {
		// 事前チェックと挿入はアトミックではないため、
		// 挿入時の一意性違反も同じ「user exists」に倒す
		if errors.Is(err, user.ErrDuplicate) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "user exists",
			})
			return
		}
		m.internalError(c)
		return
	}

	m.recorder.Record(c.Request.Context(), audit.Event{
		Type:  audit.EventRegister,
		Login: req.Username,
		IP:    c.ClientIP(),
	})

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "user registered successfully",
	})
}

type loginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login は POST /login のハンドラーです。
// login フィールドにはユーザー名とメールアドレスのどちらでも指定できます。
func (m *Manager) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "login and password must be present",
		})
		return
	}

	found, err := m.store.FindByLogin(c.Request.Context(), req.Login)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "user not found",
			})
			return
		}
		m.internalError(c)
		return
	}

	match, err := m.hasher.Verify(req.Password, found.PasswordHash)
	if err != nil {
		m.internalError(c)
		return
	}
	if !match {
		m.recorder.Record(c.Request.Context(), audit.Event{
			Type:  audit.EventLoginFailed,
			Login: req.Login,
			IP:    c.ClientIP(),
		})
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "invalid credentials",
		})
		return
	}

	signed, err := m.tokens.Issue(found.ID, found.Username)
	if err != nil {
		m.internalError(c)
		return
	}

	// トークンはクッキーのみで運ぶ（レスポンスボディには載せない）
	m.setSessionCookie(c, signed, int(m.tokens.TTL().Seconds()))

	m.recorder.Record(c.Request.Context(), audit.Event{
		Type:  audit.EventLogin,
		Login: found.Username,
		IP:    c.ClientIP(),
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "logged in successfully",
	})
}

// Logout は POST /logout のハンドラーです。
// セッションの有無にかかわらずクッキーを破棄して成功を返します。
// 発行済みトークン自体は失効しません（ステートレストークンの制約）。
func (m *Manager) Logout(c *gin.Context) {
	m.setSessionCookie(c, "", -1)

	m.recorder.Record(c.Request.Context(), audit.Event{
		Type: audit.EventLogout,
		IP:   c.ClientIP(),
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "logged out successfully",
	})
}

// AuthCheck は GET /auth-check のハンドラーです。RequireSession の後段で動きます。
func (m *Manager) AuthCheck(c *gin.Context) {
	claims, ok := c.MustGet(ContextClaimsKey).(*token.Claims)
	if !ok {
		m.internalError(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user": gin.H{
			"id":       claims.UserID,
			"username": claims.Username,
		},
	})
}

func (m *Manager) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	secure := m.cfg.GinMode == gin.ReleaseMode
	c.SetCookie(TokenCookieName, value, maxAge, "/", "", secure, true)
}

func (m *Manager) internalError(c *gin.Context) {
	// 内部エラーの詳細はレスポンスに出さない
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"message": "internal server error",
	})
}
