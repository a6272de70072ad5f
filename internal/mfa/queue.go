package mfa

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTimeout is returned by Await when no callback arrives within the
// configured window.
var ErrTimeout = errors.New("mfa: challenge timed out")

// slot is a single in-flight challenge's resolution channel.
type slot struct {
	resolved chan string // receives the callback's opaque status token
}

// Queue brokers the single outstanding MFA challenge per UPN between the
// Bind goroutine that opened it and the HTTP callback that resolves it.
// It is process-global: one Queue instance is shared by the session server
// and the HTTP side-channel.
type Queue struct {
	mu      sync.Mutex
	pending map[string]*slot
	timeout time.Duration
}

// NewQueue builds a Queue with the given per-challenge timeout (spec
// default 60s).
func NewQueue(timeout time.Duration) *Queue {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Queue{pending: make(map[string]*slot), timeout: timeout}
}

// Await registers upn as awaiting a callback and blocks until Resolve is
// called for it, ctx is cancelled, or the timeout elapses. A duplicate
// Await for a UPN that is already pending overwrites the prior slot: the
// earlier waiter times out or is cancelled on its own, and Resolve only
// ever reaches the newest registration.
func (q *Queue) Await(ctx context.Context, upn string) (string, error) {
	s := &slot{resolved: make(chan string, 1)}
	q.mu.Lock()
	q.pending[upn] = s
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		if q.pending[upn] == s {
			delete(q.pending, upn)
		}
		q.mu.Unlock()
	}()

	timer := time.NewTimer(q.timeout)
	defer timer.Stop()

	select {
	case token := <-s.resolved:
		return token, nil
	case <-timer.C:
		return "", ErrTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Resolve delivers the callback token to whoever is waiting on upn. It is
// a no-op if nobody is waiting (the challenge already timed out, or the
// callback is spurious).
func (q *Queue) Resolve(upn, token string) bool {
	q.mu.Lock()
	s, ok := q.pending[upn]
	q.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case s.resolved <- token:
		return true
	default:
		return false
	}
}

// ValidateCallback parses and verifies a callback JWT, checking its
// audience against mfaKey, and returns the subject (the UPN that completed
// the challenge).
func ValidateCallback(tokenString, mfaKey, mfaSecret string) (string, error) {
	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("mfa: unexpected signing method")
		}
		return []byte(mfaSecret), nil
	}, jwt.WithAudience(mfaKey))
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
