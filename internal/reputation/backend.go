package reputation

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	// BackendMemory keeps lists in process memory, seeded at startup
	BackendMemory = "memory"
	// BackendSQLite persists lists in a local sqlite database
	BackendSQLite = "sqlite"
	// BackendPostgres persists lists in postgres
	BackendPostgres = "postgres"
)

// BackendConfig selects and configures the store backend.
type BackendConfig struct {
	// Backend is one of memory, sqlite or postgres
	Backend string
	// DSN is the database connection string for sqlite and postgres
	DSN string
	// SeedFile optionally replaces the bundled starter lists
	SeedFile string
	// SeedEmpty populates a database backend whose lists are all empty
	SeedEmpty bool
}

// OpenStore opens the configured backend.
func OpenStore(ctx context.Context, cfg BackendConfig) (Store, error) {
	seed, err := loadSeed(cfg.SeedFile)
	if err != nil {
		return nil, err
	}

	var store Store

	switch strings.ToLower(cfg.Backend) {
	case "", BackendMemory:
		return NewMemoryStore(seed), nil
	case BackendSQLite:
		store, err = OpenSQLite(ctx, cfg.DSN)
	case BackendPostgres:
		store, err = OpenPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}

	if err != nil {
		return nil, err
	}

	if cfg.SeedEmpty {
		if err := seedIfEmpty(ctx, store, seed); err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	return store, nil
}

func loadSeed(path string) (Dataset, error) {
	if path == "" {
		return DefaultDataset()
	}

	return LoadDataset(path)
}

// seedIfEmpty writes the seed when every list is empty
func seedIfEmpty(ctx context.Context, store Store, seed Dataset) error {
	for _, name := range Lists {
		entries, err := store.ReadList(ctx, name)
		if err != nil {
			return fmt.Errorf("checking %s before seeding: %w", name, err)
		}

		if len(entries) > 0 {
			return nil
		}
	}

	written := 0

	for _, name := range Lists {
		for _, e := range seed.List(name) {
			normalized, err := Normalize(name, e)
			if err != nil {
				continue
			}

			if _, err := store.Upsert(ctx, name, normalized); err != nil {
				return fmt.Errorf("seeding %s: %w", name, err)
			}

			written++
		}
	}

	log.Info().Int("entries", written).Msg("seeded empty reputation store")

	return nil
}
