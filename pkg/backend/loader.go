package backend

import (
	"context"
	"errors"
	"sync"

	"github.com/user/malscan-report/pkg/engine"
)

// SessionFetcher is the part of Client the Loader needs.
type SessionFetcher interface {
	GetSession(ctx context.Context, id engine.SessionID) (*engine.Session, error)
}

// Loader keeps at most one session fetch outstanding. Starting a new fetch
// cancels the previous one; its caller gets ErrFetchCancelled and the late
// result is dropped.
type Loader struct {
	fetcher SessionFetcher

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	closed bool
}

// NewLoader wraps a fetcher.
func NewLoader(f SessionFetcher) *Loader {
	return &Loader{fetcher: f}
}

// Load fetches session id, superseding any fetch still in flight.
func (l *Loader) Load(ctx context.Context, id engine.SessionID) (*engine.Session, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, ErrFetchCancelled
	}
	if l.cancel != nil {
		l.cancel()
	}
	l.seq++
	seq := l.seq
	fetchCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.mu.Unlock()

	s, err := l.fetcher.GetSession(fetchCtx, id)

	l.mu.Lock()
	defer l.mu.Unlock()
	current := seq == l.seq && !l.closed
	if current {
		l.cancel = nil
	}
	cancel()

	if !current {
		return nil, ErrFetchCancelled
	}
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() == nil {
			return nil, ErrFetchCancelled
		}
		return nil, err
	}
	return s, nil
}

// Close cancels any outstanding fetch. Later Loads fail with ErrFetchCancelled.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}
