// Package password はパスワードの一方向ハッシュ化と検証を提供します。
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher は bcrypt によるハッシュ化と検証をまとめた構造体です。
type Hasher struct {
	cost int
}

// NewHasher はコストファクターを指定して Hasher を作成します。
// 範囲外のコストは bcrypt の既定値に丸められます。
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash は平文パスワードをソルト付きでハッシュ化します。
// 同じ入力でも出力は毎回異なります。
func (h *Hasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify は平文パスワードと保存済みハッシュを照合します。
// 不一致は (false, nil) を返し、保存ハッシュ自体が壊れている場合のみエラーを返します。
func (h *Hasher) Verify(plaintext, hashedValue string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hashedValue), []byte(plaintext))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("malformed password hash: %w", err)
}
