package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/memory/v2"
	"github.com/gofiber/storage/redis/v3"
	goredis "github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	URL         string
	PoolSize    int
	ClusterMode bool
}

// Storage is the key-value backend shared by refresh sessions and the rate limiter.
// Conn is nil when the backend is in-process memory.
type Storage struct {
	fiber.Storage
	conn goredis.UniversalClient
	mu   sync.Mutex
}

// Take reads and removes key in one step. Redis does it with GETDEL; the
// in-process backend serializes takers instead. A missing key yields nil.
func (s *Storage) Take(key string) ([]byte, error) {
	if s.conn != nil {
		val, err := s.conn.GetDel(context.Background(), key).Bytes()
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return val, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	val, err := s.Storage.Get(key)
	if err != nil || len(val) == 0 {
		return nil, err
	}
	return val, s.Storage.Delete(key)
}

func (s *Storage) Conn() goredis.UniversalClient {
	return s.conn
}

func NewRedisStorage(cfg RedisConfig) *Storage {
	rs := redis.New(redis.Config{
		URL:           cfg.URL,
		PoolSize:      cfg.PoolSize,
		IsClusterMode: cfg.ClusterMode,
	})
	return &Storage{Storage: rs, conn: rs.Conn()}
}

func NewMemoryStorage() *Storage {
	return &Storage{Storage: memory.New(memory.Config{GCInterval: 10 * time.Second})}
}
