package chronos

import "github.com/rs/zerolog"

// DefaultArenaSize is 64 MiB of samples.
const DefaultArenaSize = 64 << 20 / 8

// Option configures an Engine at construction.
type Option func(*config)

type config struct {
	arenaSize int
	maxNodes  int
	callDepth int
	logLevel  Level
	logFn     LogFunc
}

func defaultConfig() config {
	return config{
		arenaSize: DefaultArenaSize,
		maxNodes:  MaxNodes,
		callDepth: CallDepth,
		logLevel:  LogInfo,
	}
}

// WithArenaSize sets the sample capacity of each Context's arena. Every
// delay line takes four seconds of it. A hot-swap copies each surviving
// delay's history on the audio thread, up to the longest time it has been
// read at, so a patch of long delays can copy most of the arena in one
// sample period.
func WithArenaSize(samples int) Option {
	return func(cfg *config) {
		if samples > 0 {
			cfg.arenaSize = samples
		}
	}
}

// WithMaxNodes bounds the node pool of each Context.
func WithMaxNodes(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.maxNodes = n
		}
	}
}

// WithCallDepth bounds macro nesting.
func WithCallDepth(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.callDepth = n
		}
	}
}

func WithLogLevel(level Level) Option {
	return func(cfg *config) {
		cfg.logLevel = level
	}
}

func WithLogFunc(fn LogFunc) Option {
	return func(cfg *config) {
		cfg.logFn = fn
	}
}

// WithLogger is WithLogFunc(ZerologSink(l)).
func WithLogger(l zerolog.Logger) Option {
	return WithLogFunc(ZerologSink(l))
}
