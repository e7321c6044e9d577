// Package policy is the access-control layer for profiles and content
// items. Every read and write in the service layer is decided here.
//
// The admin predicate is answered by a privileged single-row lookup
// (AdminLookup) and resolved once per request into a Subject. Row rules are
// then plain field comparisons on that Subject, so no rule ever reads the
// profiles table through the profile rule itself.
package policy

import (
	"context"
	"fmt"
	"time"

	"contentflow/internal/auth"
	"contentflow/internal/cache"
	"contentflow/internal/errors"
)

// AdminLookup reads a profile's admin flag directly, bypassing row policy.
// A missing profile reads as false.
type AdminLookup interface {
	AdminFlag(ctx context.Context, profileID string) (bool, error)
}

// Engine evaluates the admin predicate.
type Engine struct {
	lookup AdminLookup
	cache  *cache.Client
	ttl    time.Duration
}

// NewEngine creates a policy engine. A nil cache or zero ttl disables caching.
func NewEngine(lookup AdminLookup, cache *cache.Client, ttl time.Duration) *Engine {
	return &Engine{lookup: lookup, cache: cache, ttl: ttl}
}

func adminCacheKey(id string) string {
	return fmt.Sprintf("policy:admin:%s", id)
}

// IsAdmin reports whether the principal's profile carries the admin flag.
// Re-entering IsAdmin for a principal whose admin flag is already being
// looked up on ctx fails with ErrPolicyRecursion.
func (e *Engine) IsAdmin(ctx context.Context, p auth.Principal) (bool, error) {
	if p.Subject == "" {
		return false, errors.ErrUnauthenticated
	}
	if evaluating(ctx, p.Subject) {
		return false, fmt.Errorf("is_admin(%s): %w", p.Subject, errors.ErrPolicyRecursion)
	}

	var cached bool
	if e.ttl > 0 && e.cache.GetJSON(ctx, adminCacheKey(p.Subject), &cached) {
		return cached, nil
	}

	isAdmin, err := e.lookup.AdminFlag(markEvaluating(ctx, p.Subject), p.Subject)
	if err != nil {
		return false, fmt.Errorf("is_admin(%s): %w", p.Subject, err)
	}

	if e.ttl > 0 {
		_ = e.cache.SetJSON(ctx, adminCacheKey(p.Subject), isAdmin, e.ttl)
	}
	return isAdmin, nil
}

// Resolve evaluates the admin predicate once and returns the Subject all
// row rules for this request are checked against.
func (e *Engine) Resolve(ctx context.Context, p auth.Principal) (Subject, error) {
	isAdmin, err := e.IsAdmin(ctx, p)
	if err != nil {
		return Subject{}, err
	}
	return Subject{ID: p.Subject, Email: p.Email, Admin: isAdmin}, nil
}

// Forget drops any cached admin flag for id.
func (e *Engine) Forget(ctx context.Context, id string) {
	_ = e.cache.Delete(ctx, adminCacheKey(id))
}

type evaluationKey struct{}

// evaluation is the chain of principals whose admin flag is being looked
// up on a context.
type evaluation struct {
	id     string
	parent *evaluation
}

func markEvaluating(ctx context.Context, id string) context.Context {
	parent, _ := ctx.Value(evaluationKey{}).(*evaluation)
	return context.WithValue(ctx, evaluationKey{}, &evaluation{id: id, parent: parent})
}

func evaluating(ctx context.Context, id string) bool {
	for ev, _ := ctx.Value(evaluationKey{}).(*evaluation); ev != nil; ev = ev.parent {
		if ev.id == id {
			return true
		}
	}
	return false
}
