package connection

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Supervisor errors.
var (
	ErrAlreadyRunning = errors.New("supervisor already running")
)

// AttemptFunc performs one connection attempt. It returns nil when the
// connection is established and ready.
type AttemptFunc func(ctx context.Context) error

// Supervisor drives background reconnection: it repeatedly invokes an
// attempt function, sleeping the current backoff delay between failures,
// until an attempt succeeds or Stop is called.
//
// A Supervisor run ends on success. It does not watch the established
// connection; whoever detects a later loss starts a new run.
type Supervisor struct {
	mu sync.Mutex

	attempt AttemptFunc
	backoff *Backoff

	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	// Callback invoked before each backoff sleep.
	onRetry func(attempt int, delay time.Duration)
}

// NewSupervisor creates a supervisor around an attempt function.
// A nil backoff gets the default policy.
func NewSupervisor(attempt AttemptFunc, backoff *Backoff) *Supervisor {
	if backoff == nil {
		backoff = NewBackoff()
	}
	return &Supervisor{
		attempt: attempt,
		backoff: backoff,
	}
}

// OnRetry sets a callback invoked before each backoff sleep.
func (s *Supervisor) OnRetry(fn func(attempt int, delay time.Duration)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRetry = fn
}

// Running reports whether a supervisor run is in flight.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Backoff returns the supervisor's backoff calculator.
func (s *Supervisor) Backoff() *Backoff {
	return s.backoff
}

// Start launches one supervisor run in the background and returns
// immediately. It returns ErrAlreadyRunning if a run is already in
// flight, so callers can never stack supervisors.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx, s.done)
	return nil
}

// Stop cancels any in-flight run and waits for it to terminate.
// It is idempotent and safe to call when the supervisor never ran.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done
}

// run is the supervisor loop. It retries the attempt with backoff until
// success or cancellation.
func (s *Supervisor) run(ctx context.Context, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.cancel = nil
		s.mu.Unlock()
		close(done)
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		if err := s.attempt(ctx); err == nil {
			s.backoff.Reset()
			return
		}

		delay := s.backoff.Next()

		s.mu.Lock()
		onRetry := s.onRetry
		s.mu.Unlock()
		if onRetry != nil {
			onRetry(s.backoff.Attempts(), delay)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}
