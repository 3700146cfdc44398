package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"perfreview/internal/requestctx"
	"perfreview/internal/transport/http/api"
)

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(r *http.Request) string

type bucket struct {
	count int
	reset time.Time
}

// windowLimiter counts requests per key in fixed windows. Expired buckets
// are swept at most once per window so idle keys do not accumulate.
type windowLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	key       KeyFunc
	buckets   map[string]*bucket
	nextSweep time.Time
	now       func() time.Time
}

type decision struct {
	key       string
	allowed   bool
	remaining int
	resetIn   time.Duration
}

func newWindowLimiter(limit int, window time.Duration, key KeyFunc) *windowLimiter {
	if key == nil {
		key = CallerOrIP
	}
	return &windowLimiter{
		limit:   limit,
		window:  window,
		key:     key,
		buckets: map[string]*bucket{},
		now:     time.Now,
	}
}

func (l *windowLimiter) take(r *http.Request) decision {
	key := l.key(r)
	if key == "" {
		key = ClientIP(r)
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	if now.After(l.nextSweep) {
		for k, b := range l.buckets {
			if now.After(b.reset) {
				delete(l.buckets, k)
			}
		}
		l.nextSweep = now.Add(l.window)
	}
	b, ok := l.buckets[key]
	if !ok || now.After(b.reset) {
		b = &bucket{reset: now.Add(l.window)}
		l.buckets[key] = b
	}
	b.count++
	return decision{
		key:       key,
		allowed:   b.count <= l.limit,
		remaining: max(l.limit-b.count, 0),
		resetIn:   b.reset.Sub(now),
	}
}

// allow sets the rate limit headers and writes the 429 once the key is
// over its budget.
func (l *windowLimiter) allow(w http.ResponseWriter, r *http.Request) bool {
	if l.limit <= 0 {
		return true
	}
	d := l.take(r)
	resetSec := ceilSeconds(d.resetIn)

	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))
	h.Set("X-RateLimit-Reset", strconv.Itoa(resetSec))
	if d.allowed {
		return true
	}

	h.Set("Retry-After", strconv.Itoa(max(resetSec, 1)))
	slog.Warn("rate limit exceeded", append(requestctx.LogAttrs(r.Context()),
		"key", d.key,
		"method", r.Method,
		"path", r.URL.Path,
		"limit", l.limit,
	)...)
	api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
	return false
}

// RateLimit applies one budget per caller, or per client IP when anonymous.
func RateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	limiter := newWindowLimiter(limit, window, CallerOrIP)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter.allow(w, r) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

type routeScope int

const (
	scopeNone routeScope = iota
	scopeCredentials
	scopeWrites
)

var sensitiveRoutes = map[string]routeScope{
	"POST /auth/login":           scopeCredentials,
	"POST /auth/change-password": scopeCredentials,
	"POST /assessments":          scopeWrites,
	"POST /periods":              scopeWrites,
}

// SensitiveMutationRateLimit layers tighter budgets over credential and
// write endpoints: a quarter of baseLimit per IP and per account for
// credentials, half of it per caller for writes.
func SensitiveMutationRateLimit(baseLimit int, window time.Duration) func(http.Handler) http.Handler {
	credentialLimit := max(baseLimit/4, 1)
	credentialsByIP := newWindowLimiter(credentialLimit, window, ClientIP)
	credentialsByAccount := newWindowLimiter(credentialLimit, window, UsernameOrCaller)
	writesByCaller := newWindowLimiter(max(baseLimit/2, 1), window, CallerOrIP)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch scopeOf(r) {
			case scopeCredentials:
				if !credentialsByIP.allow(w, r) || !credentialsByAccount.allow(w, r) {
					return
				}
			case scopeWrites:
				if !writesByCaller.allow(w, r) {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func scopeOf(r *http.Request) routeScope {
	return sensitiveRoutes[r.Method+" "+apiPath(r.URL.Path)]
}

func apiPath(path string) string {
	path = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(path), "/api/v1"), "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// CallerOrIP keys on the authenticated employee, else the client IP.
func CallerOrIP(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.EmployeeID != "" {
		return "employee:" + user.EmployeeID
	}
	return ClientIP(r)
}

// UsernameOrCaller keys login attempts on the submitted username so one
// account cannot be guessed from many addresses.
func UsernameOrCaller(r *http.Request) string {
	if username := peekJSONString(r, "username"); username != "" {
		return "username:" + strings.ToLower(username)
	}
	return CallerOrIP(r)
}

// ClientIP prefers the first X-Forwarded-For hop over RemoteAddr.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	return addr
}

// peekJSONString reads one string field from a JSON body and restores the
// body for the handler.
func peekJSONString(r *http.Request, field string) string {
	if r.Body == nil || !strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	value, _ := payload[field].(string)
	return strings.TrimSpace(value)
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
