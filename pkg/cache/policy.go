package cache

import "time"

// DefaultMaxAge is how long a cached news response may be preferred over
// the network, provided it is still the same calendar day.
const DefaultMaxAge = 24 * time.Hour

// Policy is the freshness window for cached responses.
type Policy struct {
	// MaxAge bounds the absolute distance between now and the record time
	MaxAge time.Duration

	// Location is the timezone calendar days are compared in (UTC when nil)
	Location *time.Location
}

// DefaultPolicy returns a 24h, same-day-in-UTC policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAge:   DefaultMaxAge,
		Location: time.UTC,
	}
}

// IsFresh reports whether a response recorded at createdAt may still be
// served at now.
//
// The age is the absolute difference between the two instants, so a record
// stamped slightly in the future is judged like one stamped slightly in
// the past. Both the age bound and the same-calendar-day rule must hold.
func (p Policy) IsFresh(now, createdAt time.Time) bool {
	age := now.Sub(createdAt)
	if age < 0 {
		age = -age
	}
	if age >= p.MaxAge {
		return false
	}
	return p.sameDay(now, createdAt)
}

func (p Policy) sameDay(a, b time.Time) bool {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
