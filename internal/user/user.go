// Package user はユーザーレコードの定義と永続化を提供します。
package user

import "time"

// User は登録済みユーザーのレコードです。
// PasswordHash はレスポンスにもログにも出してはいけません。
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}
