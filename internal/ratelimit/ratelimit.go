package ratelimit

import (
	"sync"
	"time"
)

// Limiter enforces per-client request limits on the login endpoint and
// admin write operations. Each client key (normally the remote IP) gets
// its own sliding minute and hour windows.
type Limiter struct {
	perMinute int
	perHour   int
	enabled   bool

	mu      sync.Mutex
	clients map[string]*window
	now     func() time.Time
}

type window struct {
	minute []time.Time
	hour   []time.Time
}

// NewLimiter creates a limiter with the given per-client limits.
// A limit of zero disables that window.
func NewLimiter(perMinute, perHour int, enabled bool) *Limiter {
	return &Limiter{
		perMinute: perMinute,
		perHour:   perHour,
		enabled:   enabled,
		clients:   make(map[string]*window),
		now:       time.Now,
	}
}

// Allow reports whether the client may make another request now and
// records it when allowed
func (l *Limiter) Allow(key string) bool {
	if !l.enabled {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w := l.clients[key]
	if w == nil {
		w = &window{}
		l.clients[key] = w
	}
	w.trim(now)

	if l.perMinute > 0 && len(w.minute) >= l.perMinute {
		return false
	}
	if l.perHour > 0 && len(w.hour) >= l.perHour {
		return false
	}

	w.minute = append(w.minute, now)
	w.hour = append(w.hour, now)
	return true
}

func (w *window) trim(now time.Time) {
	w.minute = keepAfter(w.minute, now.Add(-time.Minute))
	w.hour = keepAfter(w.hour, now.Add(-time.Hour))
}

func keepAfter(times []time.Time, cutoff time.Time) []time.Time {
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// Stats contains limiter statistics for one client
type Stats struct {
	Enabled             bool `json:"enabled"`
	RequestsLastMinute  int  `json:"requests_last_minute"`
	RequestsLastHour    int  `json:"requests_last_hour"`
	LimitPerMinute      int  `json:"limit_per_minute"`
	LimitPerHour        int  `json:"limit_per_hour"`
	RemainingThisMinute int  `json:"remaining_this_minute"`
	RemainingThisHour   int  `json:"remaining_this_hour"`
}

// GetStats returns the current counts for one client key
func (l *Limiter) GetStats(key string) Stats {
	if !l.enabled {
		return Stats{Enabled: false}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.clients[key]
	if w == nil {
		return Stats{
			Enabled:             true,
			LimitPerMinute:      l.perMinute,
			LimitPerHour:        l.perHour,
			RemainingThisMinute: l.perMinute,
			RemainingThisHour:   l.perHour,
		}
	}
	w.trim(l.now())

	return Stats{
		Enabled:             true,
		RequestsLastMinute:  len(w.minute),
		RequestsLastHour:    len(w.hour),
		LimitPerMinute:      l.perMinute,
		LimitPerHour:        l.perHour,
		RemainingThisMinute: maxInt(0, l.perMinute-len(w.minute)),
		RemainingThisHour:   maxInt(0, l.perHour-len(w.hour)),
	}
}

// Purge drops clients with no requests in the last hour. Called
// periodically so the map does not grow with every IP ever seen.
func (l *Limiter) Purge() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, w := range l.clients {
		w.trim(now)
		if len(w.hour) == 0 {
			delete(l.clients, key)
		}
	}
}

// Reset clears all tracked requests (useful for testing)
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clients = make(map[string]*window)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
