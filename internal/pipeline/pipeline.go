package pipeline

import (
	"io"
	"log/slog"
)

// Pipeline applies events and commands through a Reducer.
type Pipeline struct {
	reducer Reducer
	hash    Hasher
	logger  *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithHasher overrides the state hasher. Nil keeps the canonical hasher.
func WithHasher(h Hasher) Option {
	return func(p *Pipeline) {
		if h != nil {
			p.hash = h
		}
	}
}

// WithLogger sets the logger. Nil keeps the discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a Pipeline. A nil reducer is accepted here and reported by
// each apply call as a configuration error, so misconfiguration surfaces at
// the call site that needs the reducer.
func New(reducer Reducer, opts ...Option) *Pipeline {
	p := &Pipeline{
		reducer: reducer,
		hash:    CanonicalHasher,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}
