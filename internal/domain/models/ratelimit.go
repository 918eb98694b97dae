package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/grabpic/grabpic-api/pkg/constants"
)

// TrafficClass is a named group of routes sharing one rate policy.
type TrafficClass string

const (
	TrafficClassGuestSearch   TrafficClass = "guest-search"
	TrafficClassGuestDetails  TrafficClass = "guest-details"
	TrafficClassAuthenticated TrafficClass = "auth"
)

// Tag is the class component of a bucket key.
func (c TrafficClass) Tag() string {
	return string(c)
}

// RatePolicy is the immutable token bucket configuration of a traffic class.
type RatePolicy struct {
	Capacity        int
	RefillPerMinute int
}

// RefillPerMillisecond is the continuous refill rate.
func (p RatePolicy) RefillPerMillisecond() float64 {
	return float64(p.RefillPerMinute) / 60000
}

// TTL is the time to refill an empty bucket plus the grace buffer. A key idle for this long
// would be full again, so letting the store expire it changes nothing observable.
func (p RatePolicy) TTL() time.Duration {
	fullRefill := math.Ceil(float64(p.Capacity) * 60 / float64(p.RefillPerMinute))
	return time.Duration(fullRefill)*time.Second + constants.BucketTTLGrace
}

// TTLSeconds is TTL in whole seconds, as sent to the store.
func (p RatePolicy) TTLSeconds() int64 {
	return int64(p.TTL() / time.Second)
}

// classRule binds a path matcher to its class. Rules are evaluated in order.
type classRule struct {
	class   TrafficClass
	policy  RatePolicy
	message string
	matches func(path string) bool
}

var classRules = []classRule{
	{
		class:   TrafficClassGuestSearch,
		policy:  RatePolicy{Capacity: 5, RefillPerMinute: 5},
		message: "Too many search requests. Please wait a moment.",
		matches: func(p string) bool { return strings.Contains(p, "/guest/search-results") },
	},
	{
		class:   TrafficClassGuestDetails,
		policy:  RatePolicy{Capacity: 20, RefillPerMinute: 20},
		message: "Too many requests. Please slow down.",
		matches: func(p string) bool { return strings.Contains(p, "/guest/details") },
	},
	{
		class:   TrafficClassAuthenticated,
		policy:  RatePolicy{Capacity: 60, RefillPerMinute: 60},
		message: "Rate limit exceeded. Please try again later.",
		matches: func(p string) bool { return strings.HasPrefix(p, "/api/") },
	},
}

// ClassifyPath returns the first traffic class whose pattern matches path.
// ok is false for paths outside every class; those are not rate limited.
func ClassifyPath(path string) (class TrafficClass, ok bool) {
	for _, r := range classRules {
		if r.matches(path) {
			return r.class, true
		}
	}
	return "", false
}

// Policy returns the fixed policy of c. Classes only come from ClassifyPath or
// ParseTrafficClass, so an unknown class is a programming error and panics.
func (c TrafficClass) Policy() RatePolicy {
	for _, r := range classRules {
		if r.class == c {
			return r.policy
		}
	}
	panic(fmt.Sprintf("models: no rate policy for traffic class %q", string(c)))
}

// RejectionMessage is the client-facing 429 message of c.
func (c TrafficClass) RejectionMessage() string {
	for _, r := range classRules {
		if r.class == c {
			return r.message
		}
	}
	return "Rate limit exceeded. Please try again later."
}

// TrafficClasses lists every class in precedence order.
func TrafficClasses() []TrafficClass {
	out := make([]TrafficClass, 0, len(classRules))
	for _, r := range classRules {
		out = append(out, r.class)
	}
	return out
}

// ParseTrafficClass resolves a class tag.
func ParseTrafficClass(tag string) (TrafficClass, bool) {
	for _, r := range classRules {
		if string(r.class) == tag {
			return r.class, true
		}
	}
	return "", false
}

// BucketKey builds the shared-store key of one (client, class) bucket.
func BucketKey(prefix, clientID string, class TrafficClass) string {
	if prefix == "" {
		return clientID + ":" + class.Tag()
	}
	return prefix + ":" + clientID + ":" + class.Tag()
}

// AdmissionDecision is the outcome of one token bucket consume attempt.
type AdmissionDecision struct {
	Allowed bool
	// Remaining is the token count left after this attempt.
	Remaining float64
}

// BucketSnapshot is a read-only view of stored bucket state, used by operator tooling.
type BucketSnapshot struct {
	Key        string
	Exists     bool
	Tokens     float64
	LastRefill time.Time
	TTL        time.Duration
}
