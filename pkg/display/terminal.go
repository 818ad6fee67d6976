package display

import (
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/Schidstorm/edge_config/apps/totp-display/pkg/scheduler"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

const Prompt = "Enter your secret key to continue"

const defaultBarWidth = 20

type Option func(*Terminal)

// WithGrouping splits codes into two halves, "287 082".
func WithGrouping(group bool) Option {
	return func(t *Terminal) {
		t.group = group
	}
}

func WithBarWidth(width int) Option {
	return func(t *Terminal) {
		if width > 0 {
			t.barWidth = width
		}
	}
}

// Terminal renders scheduler updates to a writer. On a TTY the line is
// redrawn in place every tick. Other writers only get a line when the shown
// code changes.
type Terminal struct {
	out      io.Writer
	tty      bool
	group    bool
	barWidth int

	mu       sync.Mutex
	printed  bool
	lastCode string
}

func NewTerminal(out io.Writer, opts ...Option) *Terminal {
	t := &Terminal{
		out:      out,
		barWidth: defaultBarWidth,
	}
	if f, ok := out.(interface{ Fd() uintptr }); ok {
		t.tty = term.IsTerminal(int(f.Fd()))
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Terminal) Update(s scheduler.State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s.Changed {
		log.Debug().Uint64("counter", s.Counter).Msg("Code changed")
	}

	line := Render(s, t.barWidth, t.group)

	if t.tty {
		fmt.Fprintf(t.out, "\r\033[2K%s", line)
		return
	}

	if t.printed && s.Code == t.lastCode {
		return
	}
	t.printed = true
	t.lastCode = s.Code
	fmt.Fprintln(t.out, line)
}

// Finish moves a TTY cursor past the redrawn line.
func (t *Terminal) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.tty {
		fmt.Fprintln(t.out)
	}
}

// Render formats a single display line.
func Render(s scheduler.State, barWidth int, group bool) string {
	if !s.HasCode {
		return Prompt
	}

	code := s.Code
	if group {
		code = GroupCode(code)
	}

	return fmt.Sprintf("%s  [%s] %ds remaining", code, Bar(s.RemainingSeconds, s.Period, barWidth), s.RemainingSeconds)
}

// Progress is the share of the current window that is left, in percent.
func Progress(remaining, period uint64) float64 {
	if period == 0 {
		return 0
	}
	return float64(min(remaining, period)) / float64(period) * 100
}

func Bar(remaining, period uint64, width int) string {
	filled := int(math.Round(Progress(remaining, period) / 100 * float64(width)))
	return strings.Repeat("#", filled) + strings.Repeat("-", width-filled)
}

func GroupCode(code string) string {
	if len(code) <= 4 {
		return code
	}
	half := len(code) / 2
	return code[:half] + " " + code[half:]
}
