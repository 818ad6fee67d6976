package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/Schidstorm/edge_config/apps/totp-display/pkg/clock"
	"github.com/Schidstorm/edge_config/apps/totp-display/pkg/totp"
	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"
)

const DefaultInterval = time.Second

type Status int

const (
	Idle Status = iota
	Active
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	}
	return "unknown"
}

// State is what a display needs for one refresh. HasCode is false when no
// valid code could be computed.
type State struct {
	Code             string
	HasCode          bool
	RemainingSeconds uint64
	Period           uint64
	Counter          uint64
	// Changed is set on the first State after a new configuration and
	// whenever the counter advanced since the previous notification.
	Changed bool
}

// Observer receives State updates. Update is called from the scheduler's
// goroutine and must not call back into the Scheduler.
type Observer interface {
	Update(State)
}

type ObserverFunc func(State)

func (f ObserverFunc) Update(s State) {
	f(s)
}

type Option func(*Scheduler)

func WithClock(c clock.Clocker) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

type Scheduler struct {
	observer Observer
	clock    clock.Clocker
	interval time.Duration

	config atomic.Pointer[totp.Config]

	// mu guards the ticker lifecycle.
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	closed bool

	// notifyMu serializes evaluation and delivery to the observer.
	notifyMu    sync.Mutex
	lastCounter uint64
	notified    bool
}

func New(observer Observer, opts ...Option) *Scheduler {
	s := &Scheduler{
		observer: observer,
		clock:    clock.New(),
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply validates in and activates the scheduler with the resulting
// configuration. On a validation error the scheduler is cleared and the error
// is returned.
func (s *Scheduler) Apply(in totp.Input) error {
	cfg, err := totp.NewConfig(in)
	if err != nil {
		s.Clear()
		return err
	}
	return s.SetConfig(&cfg)
}

// SetConfig replaces the configuration. A nil config is the same as Clear.
// An invalid config clears the scheduler and returns the validation error.
func (s *Scheduler) SetConfig(cfg *totp.Config) error {
	if cfg == nil {
		s.Clear()
		return nil
	}
	if err := cfg.Validate(); err != nil {
		s.Clear()
		return err
	}

	snapshot := *cfg

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.config.Store(&snapshot)
	s.resetChanged()
	s.tick(context.Background())

	if s.cancel == nil {
		s.start()
	}
	return nil
}

// Clear stops ticking and publishes a State without a code. No tick fires
// after Clear returns.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasActive := s.cancel != nil
	s.stopLocked()
	s.config.Store(nil)

	if s.closed {
		return
	}

	s.notifyMu.Lock()
	s.notified = false
	s.observer.Update(State{})
	s.notifyMu.Unlock()

	if wasActive {
		log.Debug().Msg("Scheduler is idle")
	}
}

// Close tears the scheduler down. It does not notify the observer and later
// calls to SetConfig are ignored.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.config.Store(nil)
	s.closed = true
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return Active
	}
	return Idle
}

// Current evaluates the configuration at the current time without notifying
// the observer.
func (s *Scheduler) Current() State {
	state, _ := s.evaluate(s.config.Load(), s.clock.Now())
	return state
}

func (s *Scheduler) start() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go s.run(ctx, done)
	log.Debug().Dur("interval", s.interval).Msg("Scheduler is active")
}

func (s *Scheduler) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
}

func (s *Scheduler) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	timer := time.NewTimer(untilBoundary(s.clock.Now(), s.interval))
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			s.tick(ctx)
			timer.Reset(untilBoundary(s.clock.Now(), s.interval))
		case <-ctx.Done():
			return
		}
	}
}

// untilBoundary is the time left until the next multiple of interval, so
// ticks land on whole seconds when code windows roll over.
func untilBoundary(now time.Time, interval time.Duration) time.Duration {
	return interval - now.Sub(now.Truncate(interval))
}

func (s *Scheduler) tick(ctx context.Context) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	if ctx.Err() != nil {
		return
	}

	state, err := s.evaluate(s.config.Load(), s.clock.Now())
	if err != nil {
		log.Debug().Err(err).Msg("No code available")
	}

	if state.HasCode {
		state.Changed = !s.notified || state.Counter != s.lastCounter
		s.lastCounter = state.Counter
		s.notified = true
	} else {
		s.notified = false
	}

	s.observer.Update(state)
}

func (s *Scheduler) resetChanged() {
	s.notifyMu.Lock()
	s.notified = false
	s.notifyMu.Unlock()
}

func (s *Scheduler) evaluate(cfg *totp.Config, now time.Time) (State, error) {
	if cfg == nil {
		return State{}, totp.ErrEmptySecret
	}

	at := uint64(max(now.Unix(), 0))

	remaining, err := totp.RemainingSeconds(cfg.Period, at)
	if err != nil {
		return State{}, err
	}
	counter, err := totp.Counter(cfg.Period, at)
	if err != nil {
		return State{}, err
	}

	state := State{
		RemainingSeconds: remaining,
		Period:           cfg.Period,
		Counter:          counter,
	}

	code, err := totp.Generate(*cfg, at)
	if err != nil {
		return state, err
	}
	state.Code = code
	state.HasCode = true
	return state, nil
}
