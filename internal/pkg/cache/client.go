package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Client define o contrato de cache usado pelos repositórios e pelo rate limiter.
type Client interface {
	GetVersioned(ctx context.Context, key string) (string, error)
	SetIfNewer(ctx context.Context, key string, value interface{}, version int64, expiration time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, expiration time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// ErrCacheMiss é retornado quando a chave não é encontrada no cache.
var ErrCacheMiss = redis.Nil

const (
	versionedDataField    = "d"
	versionedVersionField = "v"
)

// O hash guarda o valor e a versão juntos para que a comparação e a gravação
// aconteçam num único comando.
var setIfNewerScript = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], '` + versionedVersionField + `')
if current and tonumber(current) > tonumber(ARGV[2]) then
  return 0
end
redis.call('HSET', KEYS[1], '` + versionedVersionField + `', ARGV[2], '` + versionedDataField + `', ARGV[1])
if tonumber(ARGV[3]) > 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 1
`)

// RedisClient é a implementação concreta da interface Client, usando Redis.
type RedisClient struct {
	rdb *redis.Client
}

var _ Client = (*RedisClient)(nil)

// NewRedisClient cria o cliente e faz um PING para garantir que o Redis está disponível.
func NewRedisClient(addr string, timeout time.Duration) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("não foi possível conectar ao Redis em %s: %w", addr, err)
	}

	return &RedisClient{rdb: rdb}, nil
}

// GetVersioned recupera o valor gravado por SetIfNewer.
func (c *RedisClient) GetVersioned(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.HGet(ctx, key, versionedDataField).Result()
	if err == redis.Nil {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// SetIfNewer grava o valor apenas se a versão em cache não for mais recente.
// Versões iguais sobrescrevem. Retorna false quando a gravação foi descartada.
func (c *RedisClient) SetIfNewer(ctx context.Context, key string, value interface{}, version int64, expiration time.Duration) (bool, error) {
	stored, err := setIfNewerScript.Run(ctx, c.rdb, []string{key}, value, version, expiration.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return stored == 1, nil
}

// Delete remove as chaves do cache (ausentes são ignoradas).
func (c *RedisClient) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// Incr incrementa um contador, preservando o TTL existente.
func (c *RedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return c.rdb.Incr(ctx, key).Result()
}

// Expire define o TTL de uma chave existente.
func (c *RedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return c.rdb.Expire(ctx, key, expiration).Err()
}

// TTL devolve o tempo restante da chave. O valor é negativo quando a chave
// não tem expiração (-1) ou não existe (-2).
func (c *RedisClient) TTL(ctx context.Context, key string) (time.Duration, error) {
	return c.rdb.TTL(ctx, key).Result()
}

// Close encerra as conexões com o Redis.
func (c *RedisClient) Close() error {
	return c.rdb.Close()
}
