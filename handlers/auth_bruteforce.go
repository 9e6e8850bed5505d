package handlers

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiterConfig holds login throttling settings
type LoginLimiterConfig struct {
	Enabled        bool
	MaxAttempts    int           // attempts per (email, IP) key before lockout
	WindowDuration time.Duration // attempt tracking window
	LockDuration   time.Duration // lockout after the limit is hit
}

// DefaultLoginLimiterConfig returns the default configuration
func DefaultLoginLimiterConfig() LoginLimiterConfig {
	return LoginLimiterConfig{
		Enabled:        true,
		MaxAttempts:    5,
		WindowDuration: 5 * time.Minute,
		LockDuration:   15 * time.Minute,
	}
}

type localCacheEntry struct {
	count     int
	expiresAt time.Time
}

// LoginLimiter tracks failed login attempts per (lowercased email, client IP)
// pair. Counters live in Redis with a TTL; a local sync.Map keeps the limiter
// working when Redis is unreachable.
type LoginLimiter struct {
	redis        *redis.Client
	config       LoginLimiterConfig
	localCache   sync.Map
	keyPrefix    string
	redisEnabled bool
}

// NewLoginLimiter connects to Redis (falling back to local counters when the
// connection fails) and loads tuning from system settings.
func NewLoginLimiter(settings *SettingsHandler) *LoginLimiter {
	redisAddr := os.Getenv("REDIS_HOST")
	if redisAddr == "" {
		redisAddr = "localhost"
	}
	redisPort := os.Getenv("REDIS_PORT")
	if redisPort == "" {
		redisPort = "6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", redisAddr, redisPort),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisEnabled := true
	if err := client.Ping(ctx).Err(); err != nil {
		LogWarn("LoginLimiter: Redis connection failed, using local counters only", "error", err)
		redisEnabled = false
	} else {
		LogInfo("LoginLimiter: Redis connected successfully")
	}

	config := DefaultLoginLimiterConfig()
	if settings != nil {
		config.Enabled = settings.GetSettingBool("bruteforce_enabled", config.Enabled)
		config.MaxAttempts = settings.GetSettingInt("bruteforce_max_attempts", config.MaxAttempts)
		config.WindowDuration = time.Duration(settings.GetSettingInt("bruteforce_window_minutes", 5)) * time.Minute
		config.LockDuration = time.Duration(settings.GetSettingInt("bruteforce_lock_minutes", 15)) * time.Minute
	}

	l := &LoginLimiter{
		redis:        client,
		config:       config,
		keyPrefix:    "cd:login:",
		redisEnabled: redisEnabled,
	}

	go l.cleanupLocalCache()
	return l
}

// throttleKey builds the limiter key from the login email and client IP.
func throttleKey(email, ip string) string {
	return strings.ToLower(email) + "|" + ip
}

// cleanupLocalCache periodically removes expired local entries
func (l *LoginLimiter) cleanupLocalCache() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		l.localCache.Range(func(key, value interface{}) bool {
			if entry, ok := value.(localCacheEntry); ok && now.After(entry.expiresAt) {
				l.localCache.Delete(key)
			}
			return true
		})
	}
}

// Check reports whether a login attempt is allowed for this email+IP.
// When blocked, retryAfter is the number of seconds until the lock expires.
func (l *LoginLimiter) Check(ctx context.Context, email, ip string) (allowed bool, retryAfter int) {
	if !l.config.Enabled {
		return true, 0
	}

	key := throttleKey(email, ip)

	if locked, until := l.isLocked(ctx, key); locked {
		return false, int(time.Until(until).Seconds()) + 1
	}

	if l.attemptCount(ctx, key) >= l.config.MaxAttempts {
		l.lock(ctx, key)
		return false, int(l.config.LockDuration.Seconds())
	}

	return true, 0
}

// RecordFailure increments the attempt counter for this email+IP.
func (l *LoginLimiter) RecordFailure(ctx context.Context, email, ip string) {
	if !l.config.Enabled {
		return
	}

	key := throttleKey(email, ip)
	l.increment(ctx, key)

	if l.attemptCount(ctx, key) >= l.config.MaxAttempts {
		l.lock(ctx, key)
	}
}

// RecordSuccess clears the counters for this email+IP.
func (l *LoginLimiter) RecordSuccess(ctx context.Context, email, ip string) {
	if !l.config.Enabled {
		return
	}

	key := throttleKey(email, ip)
	if l.redisEnabled {
		l.redis.Del(ctx, l.keyPrefix+key)
		l.redis.Del(ctx, l.keyPrefix+"locked:"+key)
	}
	l.localCache.Delete(key)
	l.localCache.Delete("locked:" + key)
}

func (l *LoginLimiter) isLocked(ctx context.Context, key string) (bool, time.Time) {
	if l.redisEnabled {
		ttl, err := l.redis.TTL(ctx, l.keyPrefix+"locked:"+key).Result()
		if err == nil && ttl > 0 {
			return true, time.Now().Add(ttl)
		}
	}

	if entry, ok := l.localCache.Load("locked:" + key); ok {
		if e, ok := entry.(localCacheEntry); ok && time.Now().Before(e.expiresAt) {
			return true, e.expiresAt
		}
	}

	return false, time.Time{}
}

func (l *LoginLimiter) lock(ctx context.Context, key string) {
	if l.redisEnabled {
		l.redis.Set(ctx, l.keyPrefix+"locked:"+key, "1", l.config.LockDuration)
	}
	l.localCache.Store("locked:"+key, localCacheEntry{
		count:     1,
		expiresAt: time.Now().Add(l.config.LockDuration),
	})
}

func (l *LoginLimiter) attemptCount(ctx context.Context, key string) int {
	if l.redisEnabled {
		count, err := l.redis.Get(ctx, l.keyPrefix+key).Int()
		if err == nil {
			return count
		}
	}

	if entry, ok := l.localCache.Load(key); ok {
		if e, ok := entry.(localCacheEntry); ok && time.Now().Before(e.expiresAt) {
			return e.count
		}
	}

	return 0
}

func (l *LoginLimiter) increment(ctx context.Context, key string) {
	if l.redisEnabled {
		pipe := l.redis.Pipeline()
		pipe.Incr(ctx, l.keyPrefix+key)
		pipe.Expire(ctx, l.keyPrefix+key, l.config.WindowDuration)
		_, _ = pipe.Exec(ctx)
	}

	count := 1
	if entry, ok := l.localCache.Load(key); ok {
		if e, ok := entry.(localCacheEntry); ok && time.Now().Before(e.expiresAt) {
			count = e.count + 1
		}
	}
	l.localCache.Store(key, localCacheEntry{
		count:     count,
		expiresAt: time.Now().Add(l.config.WindowDuration),
	})
}
