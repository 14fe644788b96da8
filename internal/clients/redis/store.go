package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/burstreply-backend/internal/ephemeral"
	"github.com/yungbote/burstreply-backend/internal/platform/logger"
)

type Config struct {
	Addr        string
	Password    string
	DB          int
	KeyPrefix   string
	DialTimeout time.Duration
}

// Store implements ephemeral.Store on a single Redis deployment.
type Store struct {
	log    *logger.Logger
	rdb    goredis.UniversalClient
	prefix string
}

var _ ephemeral.Store = (*Store)(nil)

func NewStore(log *logger.Logger, cfg Config) (*Store, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Info("Connected to Redis", "addr", addr, "db", cfg.DB)
	return NewStoreFromClient(log, rdb, cfg.KeyPrefix), nil
}

func NewStoreFromClient(log *logger.Logger, rdb goredis.UniversalClient, prefix string) *Store {
	return &Store{
		log:    log.With("service", "RedisEphemeralStore"),
		rdb:    rdb,
		prefix: prefix,
	}
}

func (s *Store) k(key string) string { return s.prefix + key }

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := s.rdb.Get(ctx, s.k(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, mapErr(err)
	}
	return raw, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return mapErr(s.rdb.Set(ctx, s.k(key), value, ttl).Err())
}

func (s *Store) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, s.k(key), value, ttl).Result()
	if err != nil {
		return false, mapErr(err)
	}
	return ok, nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, s.k(k))
	}
	return mapErr(s.rdb.Del(ctx, full...).Err())
}

const scanBatch = 100

func (s *Store) ScanPrefix(ctx context.Context, prefix string) ([]ephemeral.Entry, error) {
	match := escapeGlob(s.k(prefix)) + "*"
	var keys []string
	iter := s.rdb.Scan(ctx, 0, match, scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %q: %w", prefix, err)
	}

	out := make([]ephemeral.Entry, 0, len(keys))
	for start := 0; start < len(keys); start += scanBatch {
		end := start + scanBatch
		if end > len(keys) {
			end = len(keys)
		}
		vals, err := s.rdb.MGet(ctx, keys[start:end]...).Result()
		if err != nil {
			return nil, mapErr(err)
		}
		for i, v := range vals {
			// nil: expired between SCAN and MGET, or a list key sharing the prefix.
			str, ok := v.(string)
			if !ok {
				continue
			}
			out = append(out, ephemeral.Entry{
				Key:   strings.TrimPrefix(keys[start+i], s.prefix),
				Value: []byte(str),
			})
		}
	}
	return out, nil
}

func (s *Store) Append(ctx context.Context, key string, value string, ttl time.Duration) (int64, error) {
	full := s.k(key)
	var push *goredis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		push = p.RPush(ctx, full, value)
		if ttl > 0 {
			p.PExpire(ctx, full, ttl)
		}
		return nil
	})
	if err != nil {
		return 0, mapErr(err)
	}
	return push.Val(), nil
}

func (s *Store) Drain(ctx context.Context, key string) ([]string, error) {
	full := s.k(key)
	var rng *goredis.StringSliceCmd
	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		rng = p.LRange(ctx, full, 0, -1)
		p.Del(ctx, full)
		return nil
	})
	if err != nil {
		return nil, mapErr(err)
	}
	vals := rng.Val()
	if vals == nil {
		vals = []string{}
	}
	return vals, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if strings.HasPrefix(err.Error(), "WRONGTYPE") {
		return fmt.Errorf("%w: %v", ephemeral.ErrWrongType, err)
	}
	return err
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
