// Package badgerstore implementa los puertos del libro sobre BadgerDB, embebido en el proceso.
// Las transacciones son optimistas: un conflicto al confirmar reintenta la función completa.
package badgerstore

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// Config configura la base Badger.
type Config struct {
	// Path directorio de datos; obligatorio salvo InMemory.
	Path     string
	InMemory bool
	// SyncWrites fuerza fsync en cada commit.
	SyncWrites bool
	// GCInterval periodicidad del GC del value log; 0 lo desactiva.
	GCInterval     time.Duration
	GCDiscardRatio float64
	// MaxAttempts reintentos de una transacción ante conflicto al confirmar.
	MaxAttempts int
	Logger      zerolog.Logger
}

// DefaultConfig configuración persistente en path.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
		MaxAttempts:    10,
		Logger:         zerolog.Nop(),
	}
}

// InMemoryConfig configuración sin disco, para pruebas y el modo demo.
func InMemoryConfig() Config {
	return Config{
		InMemory:    true,
		MaxAttempts: 10,
		Logger:      zerolog.Nop(),
	}
}

// badgerLogger adapta zerolog a badger.Logger.
type badgerLogger struct {
	log zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func openDB(cfg Config) (*badger.DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badgerstore: path es obligatorio para una base persistente")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("badgerstore: crear directorio %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{log: cfg.Logger.With().Str("component", "badger").Logger()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: abrir base: %w", err)
	}
	return db, nil
}

// gcLoop ejecuta el GC del value log hasta que stop se cierre.
func gcLoop(db *badger.DB, interval time.Duration, ratio float64, log zerolog.Logger, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := db.RunValueLogGC(ratio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				log.Warn().Err(err).Msg("badger value log GC")
			}
		}
	}
}
