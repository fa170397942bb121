package matcher

// Config holds the three tunable matching parameters. Everything else
// in the engine is fixed so that identical input always reconciles to
// identical output.
type Config struct {
	// WindowDays is the date tolerance between debit and credit.
	WindowDays int `json:"windowDays" yaml:"window_days"`
	// MinMatched is the score floor for the matched state on the
	// heuristic path. Strong identity closure bypasses it.
	MinMatched float64 `json:"minMatched" yaml:"min_matched"`
	// MinUncertain is the score floor below which a pair is ignored
	// with LOW_CONFIDENCE.
	MinUncertain float64 `json:"minUncertain" yaml:"min_uncertain"`
}

const (
	defaultWindowDays = 1
	maxWindowDays     = 7

	defaultMinMatched   = 0.9
	defaultMinUncertain = 0.65
)

// DefaultConfig returns the standard matching parameters.
func DefaultConfig() Config {
	return Config{
		WindowDays:   defaultWindowDays,
		MinMatched:   defaultMinMatched,
		MinUncertain: defaultMinUncertain,
	}
}

// Normalize clamps the parameters into their documented ranges and
// fills zero values with defaults.
func (c Config) Normalize() Config {
	if c.WindowDays < 0 {
		c.WindowDays = 0
	}
	if c.WindowDays > maxWindowDays {
		c.WindowDays = maxWindowDays
	}
	if c.MinMatched <= 0 {
		c.MinMatched = defaultMinMatched
	}
	if c.MinUncertain <= 0 {
		c.MinUncertain = defaultMinUncertain
	}
	if c.MinUncertain > c.MinMatched {
		c.MinUncertain = c.MinMatched
	}
	return c
}
