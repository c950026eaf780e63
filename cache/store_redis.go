package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
	"gorm.io/datatypes"
)

// ConnPool hands out redis connections, *redis.Pool satisfies it.
type ConnPool interface {
	Get() redis.Conn
}

// Redis store for snapshots
type RedisStore struct {
	pool   ConnPool
	prefix string
}

func NewRedisStore(pool ConnPool) *RedisStore {
	return &RedisStore{pool: pool, prefix: "settingssnapshot"}
}

func (r *RedisStore) prefixedKey(key string) string {
	return fmt.Sprintf("%s:%s", r.prefix, key)
}

func (r *RedisStore) Get(key string) (*Snapshot, error) {
	conn := r.pool.Get()
	defer conn.Close()

	bs, err := redis.Bytes(conn.Do("GET", r.prefixedKey(key)))
	if errors.Is(err, redis.ErrNil) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error while reading snapshot %q: %w", key, err)
	}

	snapshot := &Snapshot{}
	if err := json.Unmarshal(bs, snapshot); err != nil {
		return nil, fmt.Errorf("error while decoding snapshot %q: %w", key, err)
	}

	return snapshot, nil
}

func (r *RedisStore) Put(key string, data datatypes.JSON) error {
	conn := r.pool.Get()
	defer conn.Close()

	now := time.Now()
	snapshot := Snapshot{Key: key, Data: data, CreatedAt: now, UpdatedAt: now}

	// Data must be stored byte for byte, so no HTML escaping
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(snapshot); err != nil {
		return fmt.Errorf("error while encoding snapshot %q: %w", key, err)
	}

	res, err := redis.String(conn.Do("SET", r.prefixedKey(key), bytes.TrimRight(buf.Bytes(), "\n")))
	if err != nil {
		return fmt.Errorf("error while saving snapshot %q: %w", key, err)
	}

	if res != "OK" {
		return fmt.Errorf("failed to set key: %v", res)
	}

	return nil
}

func (r *RedisStore) Delete(key string) error {
	conn := r.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("DEL", r.prefixedKey(key)); err != nil {
		return fmt.Errorf("error while deleting snapshot %q: %w", key, err)
	}

	return nil
}
