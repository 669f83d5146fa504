package middleware

import (
	"net/http"
	"sync"
	"time"

	"invoicetool/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// rateEntry tracks request counts per IP within a fixed window.
type rateEntry struct {
	count     int
	windowEnd time.Time
	mu        sync.Mutex
}

type rateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	entries   map[string]*rateEntry
	nextPurge time.Time
}

const purgeInterval = 5 * time.Minute

// RateLimiter allows limit requests per window per client IP. A limit of zero
// or less disables the limiter.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	return newRateLimiter(limit, window, time.Now).handle
}

func newRateLimiter(limit int, window time.Duration, now func() time.Time) *rateLimiter {
	return &rateLimiter{
		limit:   limit,
		window:  window,
		now:     now,
		entries: make(map[string]*rateEntry),
	}
}

func (l *rateLimiter) handle(c *gin.Context) {
	if l.limit <= 0 {
		c.Next()
		return
	}
	now := l.now()
	entry := l.entry(c.ClientIP(), now)

	entry.mu.Lock()
	if now.After(entry.windowEnd) {
		entry.count = 0
		entry.windowEnd = now.Add(l.window)
	}
	entry.count++
	exceeded := entry.count > l.limit
	retryAfter := entry.windowEnd
	entry.mu.Unlock()

	if exceeded {
		c.Header("Retry-After", retryAfter.UTC().Format(http.TimeFormat))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("too many requests, try again shortly"))
		return
	}
	c.Next()
}

// entry returns the bucket for ip and drops expired buckets every purgeInterval.
func (l *rateLimiter) entry(ip string, now time.Time) *rateEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.After(l.nextPurge) {
		purged := 0
		for k, e := range l.entries {
			e.mu.Lock()
			if now.After(e.windowEnd) {
				delete(l.entries, k)
				purged++
			}
			e.mu.Unlock()
		}
		l.nextPurge = now.Add(purgeInterval)
		if purged > 0 {
			log.Debug().
				Int("entries_purged", purged).
				Int("entries_remaining", len(l.entries)).
				Msg("rate limiter map purged")
		}
	}

	e, ok := l.entries[ip]
	if !ok {
		e = &rateEntry{}
		l.entries[ip] = e
	}
	return e
}
