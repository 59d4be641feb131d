package gateway

import (
	"crypto/subtle"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/haoranw/steamgate/internal/config"
)

// ResolvedAuth holds the resolved bearer credential for the gateway.
type ResolvedAuth struct {
	Token string
}

// ResolveAuth resolves the bearer token from config and environment.
// Precedence: config value → STEAMGATE_GATEWAY_TOKEN → empty.
func ResolveAuth(cfg config.GatewayAuth) ResolvedAuth {
	token := cfg.Token
	if token == "" {
		token = os.Getenv("STEAMGATE_GATEWAY_TOKEN")
	}
	return ResolvedAuth{Token: token}
}

// AuthResult is the outcome of checking one request's credential.
// Status distinguishes a missing credential (401) from a mismatched
// one (403).
type AuthResult struct {
	OK     bool
	Status int
	Reason string
}

// Authorize checks a request's Authorization header against the
// resolved server credential.
func Authorize(serverAuth ResolvedAuth, r *http.Request) AuthResult {
	if serverAuth.Token == "" {
		return AuthResult{Status: http.StatusUnauthorized, Reason: "server token not configured"}
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return AuthResult{Status: http.StatusUnauthorized, Reason: "missing bearer token"}
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return AuthResult{Status: http.StatusUnauthorized, Reason: "malformed authorization header"}
	}
	if !safeEqual(token, serverAuth.Token) {
		return AuthResult{Status: http.StatusForbidden, Reason: "invalid bearer token"}
	}
	return AuthResult{OK: true}
}

// safeEqual performs a constant-time string comparison to prevent timing attacks.
// It avoids early-return on length mismatch to prevent leaking secret length via timing.
func safeEqual(a, b string) bool {
	lenMatch := subtle.ConstantTimeEq(int32(len(a)), int32(len(b)))
	cmp := subtle.ConstantTimeCompare([]byte(a), []byte(b))
	return subtle.ConstantTimeSelect(lenMatch, cmp, 0) == 1
}

const (
	authRateWindow   = 5 * time.Minute
	authRateMaxFails = 10
	authRateMaxIPs   = 10000
)

// authRateLimiter tracks failed auth attempts per IP. Entries are
// pruned lazily on access; the IP cap bounds memory under abuse.
type authRateLimiter struct {
	mu       sync.Mutex
	failures map[string][]time.Time
}

func newAuthRateLimiter() *authRateLimiter {
	return &authRateLimiter{failures: make(map[string][]time.Time)}
}

func hostOf(remoteAddr string) string {
	host, _, _ := net.SplitHostPort(remoteAddr)
	if host == "" {
		return remoteAddr
	}
	return host
}

func (l *authRateLimiter) allow(remoteAddr string) bool {
	host := hostOf(remoteAddr)

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.pruneLocked(host)
	return len(recent) < authRateMaxFails
}

func (l *authRateLimiter) recordFailure(remoteAddr string) {
	host := hostOf(remoteAddr)

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, tracked := l.failures[host]; !tracked && len(l.failures) >= authRateMaxIPs {
		l.evictOldestLocked()
	}
	l.failures[host] = append(l.pruneLocked(host), time.Now())
}

// pruneLocked drops failures older than the window for one host.
func (l *authRateLimiter) pruneLocked(host string) []time.Time {
	cutoff := time.Now().Add(-authRateWindow)
	recent := l.failures[host]
	filtered := recent[:0]
	for _, ts := range recent {
		if ts.After(cutoff) {
			filtered = append(filtered, ts)
		}
	}
	if len(filtered) == 0 {
		delete(l.failures, host)
		return nil
	}
	l.failures[host] = filtered
	return filtered
}

func (l *authRateLimiter) evictOldestLocked() {
	var oldestHost string
	var oldestTime time.Time
	for host, times := range l.failures {
		if len(times) > 0 && (oldestHost == "" || times[0].Before(oldestTime)) {
			oldestHost = host
			oldestTime = times[0]
		}
	}
	if oldestHost != "" {
		delete(l.failures, oldestHost)
	}
}
