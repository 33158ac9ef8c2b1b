package app

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"live-quiz-service/internal/domain"
)

const maxPinAttempts = 1000

// PinAllocator hands out 6-digit PINs that do not collide with a live session.
type PinAllocator struct {
	mu  sync.Mutex
	rnd func() int
}

// NewPinAllocator draws PINs from a time-seeded source.
func NewPinAllocator() *PinAllocator {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	return NewPinAllocatorWithSource(func() int { return r.Intn(900000) })
}

// NewPinAllocatorWithSource uses next, which must return values in [0, 900000).
func NewPinAllocatorWithSource(next func() int) *PinAllocator {
	return &PinAllocator{rnd: next}
}

// Allocate retries until taken reports the candidate as free.
func (a *PinAllocator) Allocate(taken func(pin string) bool) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := 0; i < maxPinAttempts; i++ {
		pin := fmt.Sprintf("%06d", 100000+a.rnd()%900000)
		if !taken(pin) {
			return pin, nil
		}
	}
	return "", domain.ErrPinExhausted
}
