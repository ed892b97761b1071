package position

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownTier is returned for a tier missing from the priority policy.
var ErrUnknownTier = errors.New("position: unknown priority tier")

// Ranker maps priority tiers to their order in a queue's policy.
type Ranker struct {
	policy      []string
	index       map[string]int
	defaultTier string
}

// NewRanker builds a Ranker from a policy listed highest tier first.
// An empty defaultTier falls back to the lowest tier.
func NewRanker(policy []string, defaultTier string) *Ranker {
	r := &Ranker{
		policy: append([]string(nil), policy...),
		index:  make(map[string]int, len(policy)),
	}
	for i, tier := range policy {
		r.index[tier] = i
	}
	r.defaultTier = defaultTier
	if r.defaultTier == "" && len(policy) > 0 {
		r.defaultTier = policy[len(policy)-1]
	}
	return r
}

// Resolve returns the tier name to use for a request, applying the default.
func (r *Ranker) Resolve(tier string) (string, error) {
	if tier == "" {
		tier = r.defaultTier
	}
	if _, ok := r.index[tier]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}
	return tier, nil
}

// Key computes the line key for a session. Reprioritizing a session must
// pass its original enqueuedAt and seq so it keeps its place among
// sessions of the new tier.
func (r *Ranker) Key(tier string, enqueuedAt time.Time, seq uint64) (Key, error) {
	idx, ok := r.index[tier]
	if !ok {
		return Key{}, fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}
	return Key{Tier: idx, EnqueuedAt: enqueuedAt, Seq: seq}, nil
}

// Policy returns a copy of the tier order.
func (r *Ranker) Policy() []string {
	return append([]string(nil), r.policy...)
}
