package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	instancesKey     = "watercooler:instances"
	instanceLiveness = 60 * time.Second
)

// InstanceRegistry tracks active relay processes in Redis. Each process
// heartbeats into a shared hash; entries without a heartbeat for more than
// a minute are considered gone. This is operator visibility only; delivery
// coordination happens purely through pub/sub.
type InstanceRegistry struct {
	rdb        *goredis.Client
	instanceID string
	heartbeat  time.Duration
}

// InstanceInfo holds metadata about one relay process.
type InstanceInfo struct {
	InstanceID string `json:"instance_id"`
	Timestamp  int64  `json:"timestamp"`
}

// NewInstanceRegistry creates a registry. instanceID should be unique per
// process (hostname or UUID).
func NewInstanceRegistry(rdb *goredis.Client, instanceID string, heartbeat time.Duration) *InstanceRegistry {
	return &InstanceRegistry{rdb: rdb, instanceID: instanceID, heartbeat: heartbeat}
}

// Start registers immediately, then heartbeats until ctx is cancelled, at
// which point the instance is unregistered.
func (r *InstanceRegistry) Start(ctx context.Context) {
	r.register(ctx)

	ticker := time.NewTicker(r.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.register(ctx)
		case <-ctx.Done():
			r.unregister()
			return
		}
	}
}

func (r *InstanceRegistry) register(ctx context.Context) {
	info := InstanceInfo{InstanceID: r.instanceID, Timestamp: time.Now().Unix()}
	data, err := json.Marshal(info)
	if err != nil {
		return
	}
	if err := r.rdb.HSet(ctx, instancesKey, r.instanceID, data).Err(); err != nil {
		slog.Warn("instance heartbeat failed", "instance", r.instanceID, "error", err)
	}
}

func (r *InstanceRegistry) unregister() {
	r.rdb.HDel(context.Background(), instancesKey, r.instanceID)
}

// ActiveInstances returns the ids of relay processes with a recent heartbeat.
func (r *InstanceRegistry) ActiveInstances(ctx context.Context) ([]string, error) {
	entries, err := r.rdb.HGetAll(ctx, instancesKey).Result()
	if err != nil {
		return nil, err
	}

	active := []string{}
	cutoff := time.Now().Add(-instanceLiveness).Unix()
	for instanceID, data := range entries {
		var info InstanceInfo
		if err := json.Unmarshal([]byte(data), &info); err != nil {
			continue
		}
		if info.Timestamp > cutoff {
			active = append(active, instanceID)
		}
	}
	return active, nil
}
