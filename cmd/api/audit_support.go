package main

import (
	"log"

	"github.com/hibiken/asynq"
	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/auth-gate/internal/audit"
	"github.com/yourusername/auth-gate/internal/config"
)

// setupAudit は監査イベントの記録側（Recorder）と消費側（Worker）を組み立てます。
// 監査が無効な場合は (nil, nil, nil) を返します。
func setupAudit(cfg *config.Config, redisClient *redis.Client) (*audit.Recorder, *audit.Worker, error) {
	if !cfg.AuditQueueEnabled {
		return nil, nil, nil
	}

	queueOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}

	recorder := audit.NewRecorder(asynq.NewClient(queueOpt), log.Default())

	store := audit.NewStore(redisClient, cfg.AuditHistoryLimit)
	worker, err := audit.NewWorker(queueOpt, store, log.Default())
	if err != nil {
		return nil, nil, err
	}

	return recorder, worker, nil
}
