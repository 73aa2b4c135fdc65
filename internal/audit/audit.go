// Package audit は認証イベントの非同期記録を提供します。
package audit

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TaskTypeAuthEvent は認証イベントを運ぶタスク種別です。
	TaskTypeAuthEvent = "auth:event"
)

// EventType は認証イベントの種類を表します。
type EventType string

const (
	EventRegister    EventType = "register"
	EventLogin       EventType = "login"
	EventLoginFailed EventType = "login_failed"
	EventLogout      EventType = "logout"
)

// Event は記録対象の認証イベントです。パスワード類は決して含めません。
type Event struct {
	Type  EventType `json:"type"`
	Login string    `json:"login,omitempty"`
	IP    string    `json:"ip,omitempty"`
	At    time.Time `json:"at"`
}

// Recorder は認証イベントをキューへ投入します。
// nil の Recorder は何もしない（監査無効時の配線を単純にするため）。
type Recorder struct {
	client *asynq.Client
	logger *log.Logger
}

// NewRecorder は Recorder を作成します。
func NewRecorder(client *asynq.Client, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.Default()
	}
	return &Recorder{
		client: client,
		logger: logger,
	}
}

// Record はイベントをキューへ投入します。
// 投入失敗はログに残すだけで、呼び出し元のリクエスト処理は失敗させません。
func (r *Recorder) Record(ctx context.Context, event Event) {
	if r == nil || r.client == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		r.logger.Printf("audit: failed to encode event: %v", err)
		return
	}
	task := asynq.NewTask(TaskTypeAuthEvent, payload)
	if _, err := r.client.EnqueueContext(ctx, task); err != nil {
		r.logger.Printf("audit: failed to enqueue event: %v", err)
	}
}
