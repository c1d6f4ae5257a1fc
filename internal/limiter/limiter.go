// Package limiter caps how many orders a single affiliate may submit per
// minute. Counters live in Redis so the cap holds across instances; without a
// Redis client the limiter allows everything.
package limiter

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/01030959804/affiliate-ledger/internal/logger"
)

const counterTTL = time.Minute

// counterScript bumps the window counter and arms its expiry in one atomic
// step, so a failure between the two can never leave a counter that outlives
// its window.
var counterScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return count`)

type OrderLimiter struct {
	client *redis.Client
	limit  int
	log    *logger.Logger
}

func NewOrderLimiter(client *redis.Client, limit int, l *logger.Logger) *OrderLimiter {
	return &OrderLimiter{client: client, limit: limit, log: l}
}

// Allow counts the attempt and reports whether the affiliate is still under
// the per-minute cap. A fixed window is enough here; the cap exists to stop
// runaway submission, not to shape traffic precisely. Redis failures fail
// open so order intake does not depend on Redis availability.
func (orderLimiter *OrderLimiter) Allow(ctx context.Context, affiliateID int) bool {
	if orderLimiter.client == nil || orderLimiter.limit <= 0 {
		return true
	}

	key := "orders:rate:" + strconv.Itoa(affiliateID)
	count, err := counterScript.Run(ctx, orderLimiter.client, []string{key}, int(counterTTL.Seconds())).Int64()
	if err != nil {
		orderLimiter.log.Sugar().Errorf("Failed to increment the rate counter: %s", err)
		return true
	}

	return count <= int64(orderLimiter.limit)
}
