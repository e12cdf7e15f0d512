// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Rdb is the global Redis client. Connect it once at application startup;
// publishers treat a nil client as "event feed disabled".
var Rdb *redis.Client

// DefaultQueueName is the Redis list (queue) name for battle event records.
var DefaultQueueName = "packduel_events"

// Battle event types pushed to the queue.
const (
	EventChallengeResolved  = "challenge_resolved"
	EventMatchResolved      = "match_resolved"
	EventTournamentComplete = "tournament_complete"
)

// BattleEventRecord is the minimal shape downstream consumers (stats,
// notifications) need to replay what happened.
type BattleEventRecord struct {
	EventType    string         `json:"event_type"`
	TournamentID string         `json:"tournament_id,omitempty"`
	MatchID      string         `json:"match_id,omitempty"`
	Actors       []string       `json:"actors"`
	WinnerID     string         `json:"winner_id,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
	Timestamp    int64          `json:"timestamp"`
}

// ConnectRedis initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		Rdb = nil
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// PublishBattleEvent serializes the record to JSON and pushes it onto the
// event queue. Best-effort: a nil client is a no-op so battles never block on
// the feed being down.
func PublishBattleEvent(ctx context.Context, record BattleEventRecord) error {
	if Rdb == nil {
		return nil
	}
	if record.Timestamp == 0 {
		record.Timestamp = time.Now().Unix()
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal BattleEventRecord: %w", err)
	}
	queueName := getEnv("EVENT_QUEUE_NAME", DefaultQueueName)
	if err := Rdb.RPush(ctx, queueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queueName, err)
	}
	return nil
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
