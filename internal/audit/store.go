package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const historyKey = "audit:events"

// Store は認証イベントの履歴を Redis のリストに保存します。
type Store struct {
	rdb   *redis.Client
	limit int64
}

// NewStore は Store を作成します。limit は履歴の保持件数上限です。
func NewStore(rdb *redis.Client, limit int) *Store {
	if limit <= 0 {
		limit = 1000
	}
	return &Store{
		rdb:   rdb,
		limit: int64(limit),
	}
}

// Append はイベントを履歴の先頭に追加し、上限を超えた分を切り捨てます。
func (s *Store) Append(ctx context.Context, event *Event) error {
	if event == nil {
		return fmt.Errorf("event is nil")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode audit event: %w", err)
	}
	if err := s.rdb.LPush(ctx, historyKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}
	return s.rdb.LTrim(ctx, historyKey, 0, s.limit-1).Err()
}

// Recent は新しい順に最大 n 件のイベントを返します。
func (s *Store) Recent(ctx context.Context, n int) ([]Event, error) {
	if n <= 0 {
		n = int(s.limit)
	}
	raw, err := s.rdb.LRange(ctx, historyKey, 0, int64(n)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load audit events: %w", err)
	}
	events := make([]Event, 0, len(raw))
	for _, item := range raw {
		var event Event
		if err := json.Unmarshal([]byte(item), &event); err != nil {
			return nil, fmt.Errorf("failed to decode audit event: %w", err)
		}
		events = append(events, event)
	}
	return events, nil
}
