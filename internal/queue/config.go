package queue

import (
	"time"

	"github.com/sirupsen/logrus"

	"virtual_queue/internal/clock"
	"virtual_queue/internal/events"
	"virtual_queue/internal/models"
)

// Config tunes the engine.
type Config struct {
	// TickInterval is how often the release scheduler runs. It sizes the
	// per-queue release burst.
	TickInterval time.Duration

	// LockTimeout bounds the wait for a queue lock before ErrBusy.
	LockTimeout time.Duration

	// NoShowTimeout applies to queues without their own timeout.
	NoShowTimeout time.Duration

	// ServiceDuration seeds wait estimates until a queue has samples.
	ServiceDuration time.Duration

	// TerminalRetention is how long finished sessions stay in memory.
	TerminalRetention time.Duration

	// OutboxSize is how many committed batches may wait for persistence
	// and notification. Batches beyond it are dropped and counted.
	OutboxSize int

	// PersistAttempts is how many times a snapshot save is tried.
	PersistAttempts int

	// PersistTimeout bounds a single snapshot save attempt.
	PersistTimeout time.Duration

	// TickConcurrency caps how many queues tick or sweep in parallel.
	TickConcurrency int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		TickInterval:      5 * time.Second,
		LockTimeout:       3 * time.Second,
		NoShowTimeout:     models.DefaultNoShowTimeout,
		ServiceDuration:   models.DefaultServiceDuration,
		TerminalRetention: 15 * time.Minute,
		OutboxSize:        1024,
		PersistAttempts:   3,
		PersistTimeout:    5 * time.Second,
		TickConcurrency:   8,
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the engine configuration. Zero fields keep defaults.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		def := DefaultConfig()
		if cfg.TickInterval <= 0 {
			cfg.TickInterval = def.TickInterval
		}
		if cfg.LockTimeout <= 0 {
			cfg.LockTimeout = def.LockTimeout
		}
		if cfg.NoShowTimeout <= 0 {
			cfg.NoShowTimeout = def.NoShowTimeout
		}
		if cfg.ServiceDuration <= 0 {
			cfg.ServiceDuration = def.ServiceDuration
		}
		if cfg.TerminalRetention <= 0 {
			cfg.TerminalRetention = def.TerminalRetention
		}
		if cfg.OutboxSize <= 0 {
			cfg.OutboxSize = def.OutboxSize
		}
		if cfg.PersistAttempts <= 0 {
			cfg.PersistAttempts = def.PersistAttempts
		}
		if cfg.PersistTimeout <= 0 {
			cfg.PersistTimeout = def.PersistTimeout
		}
		if cfg.TickConcurrency <= 0 {
			cfg.TickConcurrency = def.TickConcurrency
		}
		e.cfg = cfg
	}
}

// WithClock sets the time source.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithSink sets where lifecycle events are published.
func WithSink(s events.Sink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = l }
}
