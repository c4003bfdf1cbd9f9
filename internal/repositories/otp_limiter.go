package repositories

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"qurylysBack/internal/models"
)

// OtpLimiter caps how often a customer can request a confirmation code for the
// same quote. Counters live in redis with the window as TTL.
type OtpLimiter struct {
	Client *redis.Client
	Limit  int
	Window time.Duration
}

func NewOtpLimiter(client *redis.Client) *OtpLimiter {
	return &OtpLimiter{Client: client, Limit: 5, Window: 10 * time.Minute}
}

// Allow increments the per-quote counter and fails once the limit is hit.
// A redis outage never blocks the flow; it is logged and the request passes.
func (l *OtpLimiter) Allow(ctx context.Context, quoteID int) error {
	if l == nil || l.Client == nil {
		return nil
	}
	key := fmt.Sprintf("otp:quote:%d", quoteID)
	n, err := l.Client.Incr(ctx, key).Result()
	if err != nil {
		log.Printf("otp limiter unavailable: %v", err)
		return nil
	}
	if n == 1 {
		if err := l.Client.Expire(ctx, key, l.Window).Err(); err != nil {
			log.Printf("otp limiter expire failed: %v", err)
		}
	}
	if int(n) > l.Limit {
		return models.ErrOtpRateLimited
	}
	return nil
}
