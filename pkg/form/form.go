package form

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/Schidstorm/edge_config/apps/totp-display/pkg/display"
	"github.com/Schidstorm/edge_config/apps/totp-display/pkg/scheduler"
	"github.com/Schidstorm/edge_config/apps/totp-display/pkg/totp"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrMissingValue   = errors.New("missing value")
	ErrInvalidValue   = errors.New("invalid value")
)

// Target receives every new set of field values.
type Target interface {
	Apply(totp.Input) error
	Current() scheduler.State
}

// Form keeps the field values a user is editing and resubmits all of them to
// the target after every edit.
type Form struct {
	target Target
	out    io.Writer
	input  totp.Input
}

func New(target Target, out io.Writer) *Form {
	return &Form{
		target: target,
		out:    out,
		input:  totp.DefaultInput(),
	}
}

func (f *Form) Input() totp.Input {
	return f.input
}

// Load replaces all fields at once.
func (f *Form) Load(in totp.Input) error {
	f.input = in
	return f.submit()
}

func (f *Form) SetSecret(secret string) error {
	f.input.Secret = secret
	return f.submit()
}

func (f *Form) SetDigits(digits int) error {
	f.input.Digits = digits
	return f.submit()
}

func (f *Form) SetPeriod(period int) error {
	f.input.Period = period
	return f.submit()
}

func (f *Form) SetAlgorithm(algorithm string) error {
	f.input.Algorithm = algorithm
	return f.submit()
}

// SetURI fills every field from an otpauth:// URI.
func (f *Form) SetURI(uri string) error {
	key, err := totp.ParseURI(uri)
	if err != nil {
		return err
	}
	log.Info().Str("issuer", key.Issuer).Str("account", key.AccountName).Msg("Imported otpauth URI")
	return f.Load(key.Input)
}

// Clear empties the secret and keeps the other fields.
func (f *Form) Clear() error {
	return f.SetSecret("")
}

// Show writes the code that is valid right now, or the prompt.
func (f *Form) Show() error {
	state := f.target.Current()
	if !state.HasCode {
		_, err := fmt.Fprintln(f.out, display.Prompt)
		return err
	}
	_, err := fmt.Fprintln(f.out, state.Code)
	return err
}

func (f *Form) submit() error {
	return f.target.Apply(f.input)
}

// Report logs each field error of err, like a form showing a message under
// every invalid field.
func Report(err error) {
	for field, fieldErr := range FieldErrors(err) {
		// An empty secret is the normal idle state.
		if errors.Is(fieldErr, totp.ErrEmptySecret) {
			continue
		}
		log.Warn().Str("field", field).Err(fieldErr).Msg("Invalid input")
	}
}

// FieldErrors maps a validation error from totp.NewConfig to the form
// field it belongs to.
func FieldErrors(err error) map[string]error {
	if err == nil {
		return nil
	}

	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}

	fields := make(map[string]error, len(errs))
	for _, e := range errs {
		fields[fieldOf(e)] = e
	}
	return fields
}

func fieldOf(err error) string {
	switch {
	case errors.Is(err, totp.ErrEmptySecret), errors.Is(err, totp.ErrInvalidSecretEncoding):
		return "secret"
	case errors.Is(err, totp.ErrInvalidDigitCount):
		return "digits"
	case errors.Is(err, totp.ErrInvalidPeriod):
		return "period"
	case errors.Is(err, totp.ErrUnsupportedAlgorithm):
		return "algorithm"
	case errors.Is(err, totp.ErrInvalidURI):
		return "uri"
	}
	return "form"
}

type command func(f *Form, arg string) error

var commands = map[string]command{
	"secret": func(f *Form, arg string) error {
		return f.SetSecret(arg)
	},
	"digits": func(f *Form, arg string) error {
		n, err := atoi(arg)
		if err != nil {
			return err
		}
		return f.SetDigits(n)
	},
	"period": func(f *Form, arg string) error {
		n, err := atoi(arg)
		if err != nil {
			return err
		}
		return f.SetPeriod(n)
	},
	"algorithm": func(f *Form, arg string) error {
		return f.SetAlgorithm(arg)
	},
	"uri": func(f *Form, arg string) error {
		if arg == "" {
			return fmt.Errorf("%w: uri", ErrMissingValue)
		}
		return f.SetURI(arg)
	},
	"clear": func(f *Form, _ string) error {
		return f.Clear()
	},
	"show": func(f *Form, _ string) error {
		return f.Show()
	},
}

// Commands lists the names accepted by Execute.
func Commands() []string {
	names := lo.Keys(commands)
	slices.Sort(names)
	return names
}

// Execute runs one command line such as "digits 8" or "secret=JBSW Y3DP".
func (f *Form) Execute(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	name, arg, _ := strings.Cut(line, " ")
	if before, after, ok := strings.Cut(name, "="); ok {
		name, arg = before, after+" "+arg
	}

	cmd, ok := commands[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("%w %q, expected one of %s", ErrUnknownCommand, name, strings.Join(Commands(), ", "))
	}
	return cmd(f, strings.TrimSpace(arg))
}

// Run executes commands read from r until r is exhausted or ctx is done.
// Invalid commands are logged and do not stop the loop.
func (f *Form) Run(ctx context.Context, r io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return ctx.Err()
				}
			}
			Report(f.Execute(line))
		}
	}
}

func atoi(arg string) (int, error) {
	if arg == "" {
		return 0, ErrMissingValue
	}
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, arg)
	}
	return n, nil
}
