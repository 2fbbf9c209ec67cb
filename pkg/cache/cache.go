// Package cache - read-through кеш ответов поверх Redis.
//
// Кеш необязателен: клиент без Redis (или с недоступным Redis) ведет себя как
// постоянный промах, ошибки наружу не отдаются никогда. Доступность определяется
// на уровне сессии: в начале каждой операции сервис открывает Session, которая
// пингует Redis; любая ошибка внутри сессии выключает кеш до ее конца.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"reviewassigner/internal/metrics"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultTTL = 300 * time.Second

const scanBatch = 100

type Client struct {
	logger *zap.SugaredLogger
	rdb    redis.UniversalClient
	ttl    time.Duration
}

// NewClient - rdb может быть nil, тогда все сессии будут недоступными
func NewClient(logger *zap.SugaredLogger, rdb redis.UniversalClient, ttl time.Duration) *Client {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Client{
		logger: logger,
		rdb:    rdb,
		ttl:    ttl,
	}
}

// Disabled - клиент без бэкенда
func Disabled(logger *zap.SugaredLogger) *Client {
	return NewClient(logger, nil, DefaultTTL)
}

func (c *Client) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// Session открывает сессию и проверяет связь с Redis
func (c *Client) Session(ctx context.Context) *Session {
	if c == nil || c.rdb == nil {
		return &Session{client: c}
	}

	if err := c.rdb.Ping(ctx).Err(); err != nil {
		c.logger.Debugw("cache unavailable, probe failed", "err", err)
		metrics.ObserveCache("ping", "unavailable")
		return &Session{client: c}
	}

	return &Session{client: c, available: true}
}

// Enabled - сконфигурирован ли Redis вообще
func (c *Client) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Available - доступен ли кеш прямо сейчас (для health)
func (c *Client) Available(ctx context.Context) bool {
	return c.Session(ctx).Available()
}

type Session struct {
	client    *Client
	available bool
}

func (s *Session) Available() bool {
	return s.available
}

func (s *Session) fail(op string, err error) {
	s.available = false
	metrics.ObserveCache(op, "error")
	s.client.logger.Debugw("cache error, disabled for the rest of the session", "op", op, "err", err)
}

// Get декодирует значение в dst. true только при попадании.
func (s *Session) Get(ctx context.Context, key string, dst any) bool {
	if !s.available {
		return false
	}

	raw, err := s.client.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.ObserveCache("get", "miss")
			return false
		}
		s.fail("get", err)
		return false
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		// битое значение считаем промахом и удаляем
		s.client.logger.Debugw("cache value undecodable", "key", key, "err", err)
		s.Delete(ctx, key)
		return false
	}

	metrics.ObserveCache("get", "hit")
	return true
}

func (s *Session) Set(ctx context.Context, key string, value any) {
	s.SetWithTTL(ctx, key, value, s.client.ttl)
}

func (s *Session) SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) {
	if !s.available {
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		s.client.logger.Debugw("cache value not encodable", "key", key, "err", err)
		return
	}

	if err := s.client.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		s.fail("set", err)
		return
	}
	metrics.ObserveCache("set", "ok")
}

func (s *Session) Delete(ctx context.Context, keys ...string) {
	if !s.available || len(keys) == 0 {
		return
	}

	if err := s.client.rdb.Del(ctx, keys...).Err(); err != nil {
		s.fail("delete", err)
		return
	}
	metrics.ObserveCache("delete", "ok")
}

// DeleteByPrefix удаляет все ключи с префиксом. SCAN вместо KEYS, чтобы не блокировать Redis.
// Сначала проходим весь SCAN и только потом удаляем: удаление посреди обхода может сдвинуть курсор.
func (s *Session) DeleteByPrefix(ctx context.Context, prefix string) {
	if !s.available {
		return
	}

	var keys []string
	iter := s.client.rdb.Scan(ctx, 0, prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		s.fail("delete_prefix", err)
		return
	}

	for start := 0; start < len(keys); start += scanBatch {
		end := min(start+scanBatch, len(keys))
		if err := s.client.rdb.Del(ctx, keys[start:end]...).Err(); err != nil {
			s.fail("delete_prefix", err)
			return
		}
	}
	metrics.ObserveCache("delete_prefix", "ok")
}

// Apply применяет набор инвалидации
func (s *Session) Apply(ctx context.Context, inv Invalidation) {
	if inv.Empty() {
		return
	}

	s.Delete(ctx, inv.Keys()...)
	for _, prefix := range inv.Prefixes() {
		s.DeleteByPrefix(ctx, prefix)
	}
}
