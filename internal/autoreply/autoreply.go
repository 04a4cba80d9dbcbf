// Package autoreply simulates a second participant answering a message.
package autoreply

import (
	"math/rand/v2"
	"sync"
	"time"

	"parlor/internal/models"
)

const (
	DefaultProbability = 0.3
	DefaultMinDelay    = time.Second
	DefaultMaxDelay    = 4 * time.Second
)

var DefaultResponses = []string{
	"That's interesting! Tell me more.",
	"I completely agree with you.",
	"Thanks for sharing that!",
	"Interesting perspective 🤔",
	"I had a similar experience recently.",
	"That sounds awesome! 😄",
	"Good point!",
	"I'll have to try that sometime.",
	"Thanks for the tip!",
	"That makes sense.",
}

type Config struct {
	Probability float64
	MinDelay    time.Duration
	MaxDelay    time.Duration
	Responses   []string
	// Rand overrides the random source, mainly for tests.
	Rand *rand.Rand
}

// Responder decides whether a message gets an automatic answer, when, and from whom.
type Responder struct {
	probability float64
	minDelay    time.Duration
	maxDelay    time.Duration
	responses   []string

	rnd *rand.Rand
	mu  sync.Mutex
}

func New(config Config) *Responder {
	if config.MaxDelay < config.MinDelay {
		config.MaxDelay = config.MinDelay
	}
	if len(config.Responses) == 0 {
		config.Responses = DefaultResponses
	}
	if config.Rand == nil {
		config.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Responder{
		probability: config.Probability,
		minDelay:    config.MinDelay,
		maxDelay:    config.MaxDelay,
		responses:   config.Responses,
		rnd:         config.Rand,
	}
}

// Roll reports whether an automatic answer should be scheduled and after
// which delay. The delay is uniform in [MinDelay, MaxDelay).
func (r *Responder) Roll() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rnd.Float64() >= r.probability {
		return 0, false
	}

	delay := r.minDelay
	if span := r.maxDelay - r.minDelay; span > 0 {
		delay += time.Duration(r.rnd.Int64N(int64(span)))
	}
	return delay, true
}

// Pick chooses an online user other than excludeUserID and a canned text.
// ok is false when nobody qualifies.
func (r *Responder) Pick(candidates []models.User, excludeUserID string) (user models.User, text string, ok bool) {
	available := make([]models.User, 0, len(candidates))
	for _, u := range candidates {
		if u.ID != excludeUserID && u.Status == models.UserStatusOnline {
			available = append(available, u)
		}
	}
	if len(available) == 0 {
		return models.User{}, "", false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return available[r.rnd.IntN(len(available))], r.responses[r.rnd.IntN(len(r.responses))], true
}
