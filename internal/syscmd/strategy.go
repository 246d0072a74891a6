package syscmd

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/zerostock/internal/logging"
)

// Strategy is one way of reaching a goal, such as reading the SSID from
// nmcli or from iwgetid.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context) (string, error)
}

type strategyFunc struct {
	name string
	fn   func(ctx context.Context) (string, error)
}

func (s strategyFunc) Name() string { return s.name }

func (s strategyFunc) Attempt(ctx context.Context) (string, error) { return s.fn(ctx) }

// StrategyFunc adapts a function to a Strategy.
func StrategyFunc(name string, fn func(ctx context.Context) (string, error)) Strategy {
	return strategyFunc{name: name, fn: fn}
}

// Resolution is the value produced by the winning strategy.
type Resolution struct {
	Strategy string
	Value    string
}

// Chain runs strategies in order and stops at the first one that returns a
// non-empty value.
type Chain struct {
	Goal       string
	Strategies []Strategy
	// Advance decides whether a failed attempt moves on to the next
	// strategy. When nil every failure advances. When it returns false the
	// failure is returned as is.
	Advance func(err error) bool
}

// Run executes the chain. When every strategy fails the error is an
// *ExhaustedError carrying each attempt's reason.
func (c Chain) Run(ctx context.Context) (Resolution, error) {
	exhausted := &ExhaustedError{Goal: c.Goal}

	for _, s := range c.Strategies {
		value, err := s.Attempt(ctx)
		if err == nil && strings.TrimSpace(value) == "" {
			err = ErrEmptyResult
		}
		if err == nil {
			logging.Debug("Strategy succeeded",
				zap.String("goal", c.Goal),
				zap.String("strategy", s.Name()),
			)
			return Resolution{Strategy: s.Name(), Value: value}, nil
		}

		logging.Debug("Strategy failed",
			zap.String("goal", c.Goal),
			zap.String("strategy", s.Name()),
			zap.Error(err),
		)
		exhausted.Attempts = append(exhausted.Attempts, AttemptFailure{Strategy: s.Name(), Err: err})

		if c.Advance != nil && !c.Advance(err) {
			return Resolution{}, err
		}
		if ctx.Err() != nil {
			return Resolution{}, ctx.Err()
		}
	}
	return Resolution{}, exhausted
}
