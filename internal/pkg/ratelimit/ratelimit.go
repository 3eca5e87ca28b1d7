package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "teamspace:ratelimit:"

// 令牌桶脚本：按毫秒时间戳补充令牌，原子地判定并扣减。
const tokenBucketLua = `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])

if rate <= 0 or burst <= 0 then
  return {1, burst}
end

local data = redis.call("HMGET", key, "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])
if tokens == nil then
  tokens = burst
end
if ts == nil then
  ts = now
end

local delta = math.max(0, now - ts)
local refill = (delta * rate) / 1000.0
tokens = math.min(burst, tokens + refill)

local allowed = tokens >= requested
if allowed then
  tokens = tokens - requested
end

redis.call("HMSET", key, "tokens", tokens, "ts", now)
redis.call("PEXPIRE", key, math.ceil((burst / rate) * 1000.0 * 2))

return {allowed and 1 or 0, tokens}
`

// Limiter 基于 Redis 的令牌桶限流器，按标识（IP 或邮箱）独立计桶。
//
// 用于认证入口的防滥用限流：非阻塞判定，拒绝时由调用方直接返回 429。
type Limiter struct {
	rdb    *redis.Client
	rate   float64
	burst  float64
	logger *slog.Logger
	script *redis.Script
}

// NewLimiter 创建限流器。rate/burst 不大于 0 时限流被禁用（全部放行）。
func NewLimiter(rdb *redis.Client, logger *slog.Logger, rate float64, burst float64) *Limiter {
	return &Limiter{
		rdb:    rdb,
		rate:   rate,
		burst:  burst,
		logger: logger,
		script: redis.NewScript(tokenBucketLua),
	}
}

// Allow 判定标识对应的桶中是否还有令牌。
//
// Redis 不可用时放行并返回错误，让调用方决定是否只记日志：
// 限流是防滥用手段，不构成登录路径的硬依赖。
func (l *Limiter) Allow(ctx context.Context, identifier string) (bool, error) {
	if l == nil || l.rdb == nil || l.rate <= 0 || l.burst <= 0 {
		return true, nil
	}

	key := keyPrefix + identifier
	now := time.Now().UnixMilli()
	res, err := l.script.Run(ctx, l.rdb, []string{key}, l.rate, l.burst, now, 1).Result()
	if err != nil {
		return true, fmt.Errorf("ratelimit eval: %w", err)
	}

	values, ok := res.([]interface{})
	if !ok || len(values) < 1 {
		return true, fmt.Errorf("ratelimit invalid result")
	}

	return toInt64(values[0]) == 1, nil
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if t == "" {
			return 0
		}
		if parsed, err := strconv.ParseInt(t, 10, 64); err == nil {
			return parsed
		}
	}
	return 0
}
