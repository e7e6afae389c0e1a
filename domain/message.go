// Package domain contains core concepts of the messenger.
// A Message is created once and never updated; it only disappears
// when deleted or when it outlives the configured time-to-live.
package domain

import "time"

// Message represents an immutable stored message.
type Message struct {
	ID        string // short opaque identifier
	Content   string
	Theme     string
	Lang      string // ISO 639-1 code, empty when undetected
	CreatedAt time.Time
}

// Age returns how old the message is at the given instant.
func (m Message) Age(now time.Time) time.Duration {
	return now.Sub(m.CreatedAt)
}

// Expired reports whether the message outlived ttl. A zero ttl never expires,
// and a message exactly ttl old is still live.
func (m Message) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && m.Age(now) > ttl
}
