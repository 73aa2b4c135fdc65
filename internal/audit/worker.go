package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
)

// Worker は監査イベントのタスクを消費して履歴ストアへ書き込みます。
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *log.Logger
}

// NewWorker は Worker を初期化します。
func NewWorker(redisOpt asynq.RedisConnOpt, store *Store, logger *log.Logger) (*Worker, error) {
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if logger == nil {
		logger = log.Default()
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 1,
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeAuthEvent, NewEventHandler(store, logger))

	return &Worker{
		server: server,
		mux:    mux,
		logger: logger,
	}, nil
}

// Start はワーカーをバックグラウンドで起動します。
func (w *Worker) Start() error {
	return w.server.Start(w.mux)
}

// Shutdown はワーカーを停止します。
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

// NewEventHandler は auth:event タスクのハンドラーを作成します。
func NewEventHandler(store *Store, logger *log.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var event Event
		if err := json.Unmarshal(task.Payload(), &event); err != nil {
			return fmt.Errorf("failed to decode audit task: %w", err)
		}
		if err := store.Append(ctx, &event); err != nil {
			return err
		}
		logger.Printf("audit: %s login=%s ip=%s", event.Type, event.Login, event.IP)
		return nil
	}
}
