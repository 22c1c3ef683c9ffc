package light

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

const (
	DefaultPollInterval = 1 * time.Millisecond
	DefaultMinCycle     = 4000 * time.Millisecond
	DefaultMaxCycle     = 6000 * time.Millisecond
)

var ErrInvalidConfig = errors.New("invalid light config")

// DurationFunc yields the length of the next phase.
type DurationFunc func() time.Duration

type Config struct {
	PollInterval time.Duration
	MinCycle     time.Duration
	MaxCycle     time.Duration

	// NextDuration overrides the uniform pick from [MinCycle, MaxCycle].
	NextDuration DurationFunc
}

func DefaultConfig() Config {
	return Config{
		PollInterval: DefaultPollInterval,
		MinCycle:     DefaultMinCycle,
		MaxCycle:     DefaultMaxCycle,
	}
}

func (c Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive, got %s", ErrInvalidConfig, c.PollInterval)
	}
	if c.NextDuration != nil {
		return nil
	}
	if c.MinCycle <= 0 {
		return fmt.Errorf("%w: min cycle must be positive, got %s", ErrInvalidConfig, c.MinCycle)
	}
	if c.MaxCycle < c.MinCycle {
		return fmt.Errorf("%w: max cycle %s is below min cycle %s", ErrInvalidConfig, c.MaxCycle, c.MinCycle)
	}
	return nil
}

func (c Config) durationFunc() DurationFunc {
	if c.NextDuration != nil {
		return c.NextDuration
	}
	return UniformDuration(c.MinCycle, c.MaxCycle)
}

// UniformDuration picks whole milliseconds uniformly from [minCycle, maxCycle].
// Unaligned bounds are rounded inward. If no whole millisecond fits, every
// draw is minCycle.
func UniformDuration(minCycle, maxCycle time.Duration) DurationFunc {
	lo := minCycle.Milliseconds()
	if time.Duration(lo)*time.Millisecond < minCycle {
		lo++
	}
	hi := maxCycle.Milliseconds()
	if hi < lo {
		return FixedDuration(minCycle)
	}

	span := hi - lo + 1
	return func() time.Duration {
		return time.Duration(lo+rand.Int64N(span)) * time.Millisecond
	}
}

func FixedDuration(d time.Duration) DurationFunc {
	return func() time.Duration { return d }
}
