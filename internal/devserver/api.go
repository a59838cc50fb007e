// Package devserver is a small implementation of the quiz REST API backed by
// sqlite. It serves local development of the terminal client and the
// client's integration tests.
package devserver

import (
	"time"

	"k8s.io/utils/clock"
)

// DefaultSubmitGrace is how long after a quiz ends a submission is still
// accepted, covering the round trip of a submission forced at expiry.
const DefaultSubmitGrace = 30 * time.Second

type API struct {
	store       *Store
	tokens      *Tokens
	clock       clock.PassiveClock
	submitGrace time.Duration
}

type Option func(*API)

func WithClock(clk clock.PassiveClock) Option {
	return func(a *API) {
		a.clock = clk
	}
}

func WithSubmitGrace(grace time.Duration) Option {
	return func(a *API) {
		a.submitGrace = grace
	}
}

func NewAPI(store *Store, tokens *Tokens, opts ...Option) *API {
	api := &API{
		store:       store,
		tokens:      tokens,
		clock:       clock.RealClock{},
		submitGrace: DefaultSubmitGrace,
	}
	for _, opt := range opts {
		opt(api)
	}
	return api
}
