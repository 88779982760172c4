package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"moff.io/walletauth/internal/config"
	"moff.io/walletauth/pkg/common"
	"moff.io/walletauth/pkg/errors"
	"moff.io/walletauth/pkg/log"
)

const nonceKeyPrefix = "walletauth:nonce:"

var (
	Redis       *redis.Client
	RateLimiter *redis_rate.Limiter
)

// Init connects to redis, an empty address leaves the package disabled.
func Init(cred *config.DBCredential) error {
	addr := cred.GetRedisAddress()
	if addr == "" {
		log.Info("redis not configured, using in-memory nonce store")
		return nil
	}
	db, _ := strconv.ParseInt(cred.Database, 10, 64)
	Redis = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cred.Password,
		DB:       int(db),
	})
	if _, err := Redis.Ping(context.TODO()).Result(); err != nil {
		Redis.Close()
		Redis = nil
		return errors.Wrap(err, "ping to redis")
	}
	RateLimiter = redis_rate.NewLimiter(Redis)
	return nil
}

func Enabled() bool {
	return Redis != nil
}

func Close() {
	if Redis != nil {
		Redis.Close()
		Redis = nil
		RateLimiter = nil
	}
}

// ReplayGuard stores sign-in nonces in redis so every instance sees them.
type ReplayGuard struct {
	client redis.Cmdable
}

func NewReplayGuard(client redis.Cmdable) *ReplayGuard {
	return &ReplayGuard{client: client}
}

// NonceKey hashes nonce so client controlled input never shapes the key.
func NonceKey(nonce string) string {
	return nonceKeyPrefix + common.SHA256HexString([]byte(nonce))
}

func (g *ReplayGuard) Claim(ctx context.Context, nonce string, ttl time.Duration) (bool, error) {
	ok, err := g.client.SetNX(ctx, NonceKey(nonce), time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "claim nonce")
	}
	return ok, nil
}

// Allow applies a per-key rate limit of perMinute, true when no limiter is configured.
func Allow(ctx context.Context, key string, perMinute int) (bool, time.Duration) {
	if RateLimiter == nil || perMinute <= 0 {
		return true, 0
	}
	res, err := RateLimiter.Allow(ctx, "walletauth:rate:"+key, redis_rate.PerMinute(perMinute))
	if err != nil {
		log.Errorf("rate limiter:%v", err)
		return true, 0
	}
	return res.Allowed > 0, res.RetryAfter
}

// DeleteFromPrefix drops every key under prefix, used to flush nonces.
func DeleteFromPrefix(prefix string) error {
	if Redis == nil {
		return nil
	}
	var (
		cursor uint64
		match        = fmt.Sprintf("%v*", prefix)
		ctx          = context.TODO()
		count  int64 = 200
	)
	log.Debugf("deleting cache pattern %v", match)
	for {
		keys, c, err := Redis.Scan(ctx, cursor, match, count).Result()
		if err != nil {
			return errors.WrapAndReport(err, "scan caches")
		}
		cursor = c
		if len(keys) > 0 {
			err = Redis.Del(ctx, keys...).Err()
			if err != nil {
				return errors.WrapAndReport(err, "delete caches")
			}
		}
		if c == 0 {
			return nil
		}
	}
}

// FlushNonces removes every stored sign-in nonce.
func FlushNonces() error {
	return DeleteFromPrefix(nonceKeyPrefix)
}
