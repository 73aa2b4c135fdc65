// Package token はセッショントークン（署名付きJWT）の発行と検証を提供します。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// 検証失敗の分類。ミドルウェアはこの区分をそのまま拒否理由として扱います。
var (
	// ErrMalformed はトークンとして解釈できない文字列を表します。
	ErrMalformed = errors.New("token is malformed")
	// ErrSignatureInvalid は署名が一致しないトークンを表します。
	ErrSignatureInvalid = errors.New("token signature is invalid")
	// ErrExpired は有効期限切れのトークンを表します。
	ErrExpired = errors.New("token is expired")
)

// Claims はトークンに埋め込む本人性クレームです。
type Claims struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Service はHS256でトークンを発行・検証する構造体です。
type Service struct {
	secret []byte
	ttl    time.Duration
}

// NewService はトークンサービスを作成します。
// 秘密鍵の存在確認は起動時の設定バリデーションで済んでいる前提です。
func NewService(secret string, ttl time.Duration) *Service {
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// TTL は発行するトークンの有効期間を返します。
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue はユーザーIDとユーザー名を載せた署名付きトークンを発行します。
// 有効期限は発行時刻 + TTL で固定されます。
func (s *Service) Issue(userID, username string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンの署名と有効期限を検証し、クレームを返します。
// 失敗時は ErrMalformed / ErrSignatureInvalid / ErrExpired のいずれかに分類され、
// クレームは一切返しません。
func (s *Service) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, classify(err)
	}
	if !parsed.Valid {
		return nil, ErrSignatureInvalid
	}
	return claims, nil
}

// classify はjwtライブラリのエラーを本パッケージの拒否理由へ変換します。
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrSignatureInvalid):
		return ErrSignatureInvalid
	default:
		return ErrSignatureInvalid
	}
}
