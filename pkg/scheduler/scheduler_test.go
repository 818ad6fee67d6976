package scheduler_test

import (
	"sync"
	"testing"
	"time"

	"github.com/Schidstorm/edge_config/apps/totp-display/pkg/clock"
	"github.com/Schidstorm/edge_config/apps/totp-display/pkg/scheduler"
	"github.com/Schidstorm/edge_config/apps/totp-display/pkg/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	rfcSecret    = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"
	tickInterval = 5 * time.Millisecond
	waitFor      = 2 * time.Second
)

type recorder struct {
	mu     sync.Mutex
	states []scheduler.State
}

func (r *recorder) Update(s scheduler.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

func (r *recorder) last() scheduler.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return scheduler.State{}
	}
	return r.states[len(r.states)-1]
}

func (r *recorder) all() []scheduler.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]scheduler.State(nil), r.states...)
}

func rfcInput() totp.Input {
	return totp.Input{Secret: rfcSecret, Digits: 6, Period: 30}
}

func newScheduler(t *testing.T, at int64) (*scheduler.Scheduler, *recorder, *clock.Fixed) {
	rec := &recorder{}
	clk := clock.NewFixed(time.Unix(at, 0))
	s := scheduler.New(rec, scheduler.WithClock(clk), scheduler.WithInterval(tickInterval))
	t.Cleanup(s.Close)
	return s, rec, clk
}

func TestStartsIdle(t *testing.T) {
	s, rec, _ := newScheduler(t, 59)

	assert.Equal(t, scheduler.Idle, s.Status())
	assert.False(t, s.Current().HasCode)
	assert.Equal(t, 0, rec.count())
}

func TestApplyPublishesImmediately(t *testing.T) {
	s, rec, _ := newScheduler(t, 59)

	require.NoError(t, s.Apply(rfcInput()))
	assert.Equal(t, scheduler.Active, s.Status())

	first := rec.all()[0]
	assert.Equal(t, scheduler.State{
		Code:             "287082",
		HasCode:          true,
		RemainingSeconds: 1,
		Period:           30,
		Counter:          1,
		Changed:          true,
	}, first)
}

func TestTicksAcrossWindowBoundary(t *testing.T) {
	s, rec, clk := newScheduler(t, 59)
	require.NoError(t, s.Apply(rfcInput()))

	require.Eventually(t, func() bool { return rec.count() >= 3 }, waitFor, tickInterval)
	assert.False(t, rec.last().Changed)
	assert.Equal(t, "287082", rec.last().Code)

	clk.Set(time.Unix(60, 0))
	require.Eventually(t, func() bool { return rec.last().Counter == 2 }, waitFor, tickInterval)

	var rolled []scheduler.State
	for _, st := range rec.all() {
		if st.Counter == 2 {
			rolled = append(rolled, st)
		}
	}
	require.NotEmpty(t, rolled)
	assert.True(t, rolled[0].Changed)
	assert.Equal(t, "359152", rolled[0].Code)
	assert.EqualValues(t, 30, rolled[0].RemainingSeconds)
}

func TestTicksAlignToWholeSeconds(t *testing.T) {
	rec := &recorder{}
	clk := clock.NewFixed(time.Unix(59, 900*int64(time.Millisecond)))
	s := scheduler.New(rec, scheduler.WithClock(clk), scheduler.WithInterval(time.Second))
	defer s.Close()

	require.NoError(t, s.Apply(rfcInput()))
	require.Equal(t, 1, rec.count())

	// Each loop tick waits 100ms for the next whole second, not a full interval.
	require.Eventually(t, func() bool { return rec.count() >= 3 }, 700*time.Millisecond, tickInterval)

	st := rec.last()
	assert.Equal(t, "287082", st.Code)
	assert.EqualValues(t, 1, st.RemainingSeconds)
	assert.False(t, st.Changed)
}

func TestClearStopsTicking(t *testing.T) {
	s, rec, _ := newScheduler(t, 59)
	require.NoError(t, s.Apply(rfcInput()))
	require.Eventually(t, func() bool { return rec.count() >= 2 }, waitFor, tickInterval)

	s.Clear()
	assert.Equal(t, scheduler.Idle, s.Status())

	after := rec.count()
	assert.Equal(t, scheduler.State{}, rec.last())

	time.Sleep(10 * tickInterval)
	assert.Equal(t, after, rec.count())
	assert.False(t, s.Current().HasCode)
}

func TestInvalidInputDropsCode(t *testing.T) {
	s, rec, _ := newScheduler(t, 59)
	require.NoError(t, s.Apply(rfcInput()))
	require.True(t, rec.last().HasCode)

	in := rfcInput()
	in.Digits = 0
	err := s.Apply(in)
	assert.ErrorIs(t, err, totp.ErrInvalidDigitCount)

	assert.Equal(t, scheduler.Idle, s.Status())
	assert.False(t, rec.last().HasCode)
	assert.Empty(t, rec.last().Code)

	in = rfcInput()
	in.Secret = ""
	assert.ErrorIs(t, s.Apply(in), totp.ErrEmptySecret)
	assert.False(t, rec.last().HasCode)
}

func TestSetConfigRejectsInvalidConfig(t *testing.T) {
	s, rec, _ := newScheduler(t, 59)

	err := s.SetConfig(&totp.Config{Secret: totp.Secret("key"), Digits: 6, Algorithm: totp.AlgorithmSHA1})
	assert.ErrorIs(t, err, totp.ErrInvalidPeriod)
	assert.Equal(t, scheduler.Idle, s.Status())
	assert.False(t, rec.last().HasCode)

	assert.NoError(t, s.SetConfig(nil))
	assert.Equal(t, scheduler.Idle, s.Status())
}

func TestNewConfigResetsChanged(t *testing.T) {
	s, rec, _ := newScheduler(t, 59)
	require.NoError(t, s.Apply(rfcInput()))
	require.Eventually(t, func() bool { return rec.count() >= 2 }, waitFor, tickInterval)

	in := rfcInput()
	in.Digits = 8
	require.NoError(t, s.Apply(in))

	var found bool
	for _, st := range rec.all() {
		if len(st.Code) == 8 {
			assert.True(t, st.Changed)
			assert.Equal(t, "94287082", st.Code)
			found = true
			break
		}
	}
	assert.True(t, found)
}

func TestCloseSilencesScheduler(t *testing.T) {
	s, rec, _ := newScheduler(t, 59)
	require.NoError(t, s.Apply(rfcInput()))

	s.Close()
	after := rec.count()

	require.NoError(t, s.Apply(rfcInput()))
	s.Clear()
	time.Sleep(10 * tickInterval)

	assert.Equal(t, after, rec.count())
	assert.Equal(t, scheduler.Idle, s.Status())
}

func TestCurrentDoesNotNotify(t *testing.T) {
	rec := &recorder{}
	clk := clock.NewFixed(time.Unix(59, 0))
	s := scheduler.New(rec, scheduler.WithClock(clk), scheduler.WithInterval(time.Hour))
	defer s.Close()

	require.NoError(t, s.SetConfig(mustConfig(t, rfcInput())))
	require.Equal(t, 1, rec.count())

	clk.Set(time.Unix(90, 0))
	st := s.Current()

	assert.True(t, st.HasCode)
	assert.Equal(t, "969429", st.Code)
	assert.EqualValues(t, 3, st.Counter)
	assert.EqualValues(t, 30, st.RemainingSeconds)
	assert.Equal(t, 1, rec.count())
}

func TestConcurrentConfigSwaps(t *testing.T) {
	s, rec, clk := newScheduler(t, 1_700_000_000)

	inputs := []totp.Input{
		{Secret: rfcSecret, Digits: 6, Period: 30},
		{Secret: "JBSWY3DPEHPK3PXP", Digits: 8, Period: 60, Algorithm: "SHA256"},
	}
	configs := make([]totp.Config, len(inputs))
	for i, in := range inputs {
		configs[i] = *mustConfig(t, in)
	}

	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 50 {
				assert.NoError(t, s.SetConfig(&configs[(i+j)%len(configs)]))
				clk.Advance(time.Second)
			}
		}()
	}
	wg.Wait()
	s.Close()

	for _, st := range rec.all() {
		require.True(t, st.HasCode)
		var matched bool
		for _, cfg := range configs {
			if cfg.Period != st.Period {
				continue
			}
			code, err := totp.HOTP(cfg.Secret, st.Counter, cfg.Digits, cfg.Algorithm)
			require.NoError(t, err)
			matched = matched || code == st.Code
		}
		assert.True(t, matched, "state %+v does not belong to a single config", st)
	}
}

func mustConfig(t *testing.T, in totp.Input) *totp.Config {
	cfg, err := totp.NewConfig(in)
	require.NoError(t, err)
	return &cfg
}
