package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/hashicorp/go-hclog"
)

func timeoutDialOptions() []redis.DialOption {
	return []redis.DialOption{
		redis.DialConnectTimeout(5 * time.Second),
		redis.DialReadTimeout(5 * time.Second),
		redis.DialWriteTimeout(5 * time.Second),
	}
}

// NewRedisPool returns a pool dialing addr ("host:port").
func NewRedisPool(addr string) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     5,
		IdleTimeout: 240 * time.Second,
		Dial:        func() (redis.Conn, error) { return redis.Dial("tcp", addr, timeoutDialOptions()...) },
	}
}

// Redis stores every key as a plain string value under namespace and keeps
// a lexicographically ordered index of the keys in a sorted set, which is
// what prefix iteration walks. Transactions buffer their writes and flush
// them in one MULTI/EXEC block. It assumes a single bridge instance writes
// to the namespace.
type Redis struct {
	pool      *redis.Pool
	namespace string
	logger    hclog.Logger
}

func NewRedis(pool *redis.Pool, namespace string, logger hclog.Logger) *Redis {
	return &Redis{
		pool:      pool,
		namespace: namespace,
		logger:    logger.Named("redis_store"),
	}
}

func (r *Redis) Ping() error {
	conn := r.pool.Get()
	defer conn.Close()

	_, err := conn.Do("PING")
	return err
}

func (r *Redis) Get(key string) ([]byte, error) {
	conn := r.pool.Get()
	defer conn.Close()

	return redisReader{conn: conn, r: r}.Get(key)
}

func (r *Redis) Iterate(prefix string, fn func(key string, value []byte) error) error {
	return r.Seek(prefix, prefix, fn)
}

func (r *Redis) Seek(prefix, start string, fn func(key string, value []byte) error) error {
	conn := r.pool.Get()
	defer conn.Close()

	return redisReader{conn: conn, r: r}.Seek(prefix, start, fn)
}

func (r *Redis) Update(fn func(tx Tx) error) error {
	conn := r.pool.Get()
	defer conn.Close()

	tx := newOverlay(redisReader{conn: conn, r: r})
	if err := fn(tx); err != nil {
		return err
	}
	if len(tx.writes) == 0 {
		return nil
	}

	if err := conn.Send("MULTI"); err != nil {
		return err
	}
	for _, k := range tx.sortedWrites() {
		if err := conn.Send("SET", r.key(k), tx.writes[k]); err != nil {
			return err
		}
		if err := conn.Send("ZADD", r.indexKey(), 0, k); err != nil {
			return err
		}
	}

	if _, err := conn.Do("EXEC"); err != nil {
		r.logger.Error("error Redis EXEC", "err", err, "keys", len(tx.writes))
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.pool.Close()
}

func (r *Redis) key(k string) string { return r.namespace + ":" + k }

func (r *Redis) indexKey() string { return r.namespace + ":__keys" }

type redisReader struct {
	conn redis.Conn
	r    *Redis
}

func (rr redisReader) Get(key string) ([]byte, error) {
	value, err := redis.Bytes(rr.conn.Do("GET", rr.r.key(key)))
	if errors.Is(err, redis.ErrNil) {
		return nil, ErrNotFound
	}
	if err != nil {
		rr.r.logger.Error("error Redis GET", "key", key, "err", err)
		return nil, err
	}
	return value, nil
}

func (rr redisReader) Iterate(prefix string, fn func(key string, value []byte) error) error {
	return rr.Seek(prefix, prefix, fn)
}

func (rr redisReader) Seek(prefix, start string, fn func(key string, value []byte) error) error {
	start = seekStart(prefix, start)

	keys, err := redis.Strings(rr.conn.Do("ZRANGEBYLEX", rr.r.indexKey(), "["+start, "["+prefix+"\xff"))
	if err != nil {
		rr.r.logger.Error("error Redis ZRANGEBYLEX", "prefix", prefix, "start", start, "err", err)
		return err
	}

	for _, k := range keys {
		value, err := rr.Get(k)
		if errors.Is(err, ErrNotFound) {
			// indexed but never written, only possible after manual edits
			continue
		}
		if err != nil {
			return err
		}
		if err := fn(k, value); err != nil {
			if errors.Is(err, ErrStopIteration) {
				return nil
			}
			return err
		}
	}
	return nil
}
