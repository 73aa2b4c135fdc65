package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	recordKeyPrefix = "user:id:"
	nameKeyPrefix   = "user:name:"
	emailKeyPrefix  = "user:email:"
)

var (
	// ErrNotFound は該当するユーザーが存在しないことを表します。
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate はユーザー名またはメールアドレスの一意性違反を表します。
	ErrDuplicate = errors.New("user already exists")
)

// Store はユーザーレコードを Redis に保存します。
// 一意性はインデックスキーへの SETNX で担保します（最終的な調停者はストア側）。
type Store struct {
	rdb *redis.Client
}

// NewStore は Store を作成します。
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Exists はユーザー名またはメールアドレスに一致するレコードの有無を返します。
// 登録時の事前チェック用で、挿入とはアトミックではありません。
func (s *Store) Exists(ctx context.Context, username, email string) (bool, error) {
	n, err := s.rdb.Exists(ctx, nameKey(username), emailKey(email)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return n > 0, nil
}

// Create は新規ユーザーを保存します。
// ユーザー名・メールアドレスのどちらかが既に使われている場合は ErrDuplicate を返します。
// 同一IDでの同時登録が競合しても、SETNX に勝った一方だけが成功します。
func (s *Store) Create(ctx context.Context, u *User) error {
	if u == nil {
		return fmt.Errorf("user is nil")
	}

	ok, err := s.rdb.SetNX(ctx, nameKey(u.Username), u.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to reserve username: %w", err)
	}
	if !ok {
		return ErrDuplicate
	}

	ok, err = s.rdb.SetNX(ctx, emailKey(u.Email), u.ID, 0).Result()
	if err != nil {
		// ユーザー名の予約を解放してから失敗を返す
		s.rdb.Del(ctx, nameKey(u.Username))
		return fmt.Errorf("failed to reserve email: %w", err)
	}
	if !ok {
		s.rdb.Del(ctx, nameKey(u.Username))
		return ErrDuplicate
	}

	payload, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to encode user record: %w", err)
	}
	if err := s.rdb.Set(ctx, recordKey(u.ID), payload, 0).Err(); err != nil {
		s.rdb.Del(ctx, nameKey(u.Username), emailKey(u.Email))
		return fmt.Errorf("failed to save user record: %w", err)
	}
	return nil
}

// FindByLogin はユーザー名またはメールアドレスのどちらかでユーザーを検索します。
// 見つからない場合は ErrNotFound を返します。
func (s *Store) FindByLogin(ctx context.Context, login string) (*User, error) {
	id, err := s.rdb.Get(ctx, nameKey(login)).Result()
	if err == redis.Nil {
		id, err = s.rdb.Get(ctx, emailKey(login)).Result()
	}
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve login: %w", err)
	}
	return s.findByID(ctx, id)
}

func (s *Store) findByID(ctx context.Context, id string) (*User, error) {
	data, err := s.rdb.Get(ctx, recordKey(id)).Bytes()
	if err == redis.Nil {
		// インデックスだけが残っている中途半端な状態は未登録として扱う
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user record: %w", err)
	}
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("failed to decode user record: %w", err)
	}
	return &u, nil
}

func recordKey(id string) string {
	return recordKeyPrefix + id
}

func nameKey(username string) string {
	return nameKeyPrefix + username
}

func emailKey(email string) string {
	return emailKeyPrefix + email
}
