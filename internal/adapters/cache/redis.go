package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/athebyme/gomarket-orders/pkg/errors"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const keyPrefix = "order-import:"

// unlockScript удаляет ключ, только если в нем лежит токен владельца
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisCache реализует CachePort и LockerPort поверх Redis
type RedisCache struct {
	client *redis.Client

	mu         sync.Mutex
	lockTokens map[string]string // ключ блокировки -> токен этого процесса
}

// NewRedisCache подключается к Redis и проверяет соединение
func NewRedisCache(ctx context.Context, host string, port int, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCacheWithClient(client), nil
}

// NewRedisCacheWithClient оборачивает готовый клиент
func NewRedisCacheWithClient(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:     client,
		lockTokens: make(map[string]string),
	}
}

// buildKey добавляет префикс сервиса, если ключ его еще не содержит
func (r *RedisCache) buildKey(key string) string {
	if strings.HasPrefix(key, keyPrefix) {
		return key
	}
	return keyPrefix + key
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.buildKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, pkgerrors.ErrCacheMiss
		}
		return nil, err
	}
	return val, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	return r.client.Set(ctx, r.buildKey(key), value, expiration).Err()
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.buildKey(key)).Err()
}

// Lock пытается захватить блокировку через SET NX. В значение кладется
// случайный токен, по которому Unlock отличает свою блокировку от чужой
func (r *RedisCache) Lock(ctx context.Context, key string, expiration time.Duration) (bool, error) {
	token := uuid.New().String()
	ok, err := r.client.SetNX(ctx, r.buildKey(key), token, expiration).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if ok {
		r.mu.Lock()
		r.lockTokens[key] = token
		r.mu.Unlock()
	}
	return ok, nil
}

// Unlock снимает блокировку, если она все еще принадлежит этому процессу.
// Если блокировка истекла и ее захватил другой процесс, ключ не трогается
// и возвращается pkgerrors.ErrLockLost
func (r *RedisCache) Unlock(ctx context.Context, key string) error {
	r.mu.Lock()
	token, ok := r.lockTokens[key]
	delete(r.lockTokens, key)
	r.mu.Unlock()

	if !ok {
		return nil
	}

	deleted, err := unlockScript.Run(ctx, r.client, []string{r.buildKey(key)}, token).Int()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	if deleted == 0 {
		return fmt.Errorf("lock %s: %w", key, pkgerrors.ErrLockLost)
	}
	return nil
}

// Ping проверяет соединение с Redis
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
