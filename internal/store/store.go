package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	gocache "github.com/patrickmn/go-cache"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/versemix/mixdown/internal/reference"
)

// Cache and retry behaviour.
const (
	cacheTTL           = 15 * time.Minute
	cacheSweepInterval = 5 * time.Minute
	retryBackoff       = 100 * time.Millisecond
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence layer. Reads go cache first with a DB
// fallback that repopulates the cache; writes go to the DB and refresh
// the cache afterwards, so the cache never serves a value the DB has
// not accepted.
type Store struct {
	db    *gorm.DB
	cache *gocache.Cache
}

// Open connects to (or creates) the SQLite database at path and
// migrates the schema. ":memory:" gives an ephemeral store for tests.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(
		&MixingConfiguration{},
		&ReferenceTrack{},
		&FeedbackRecord{},
		&OptimizationEvent{},
		&QualityMetricHistory{},
	); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &Store{
		db:    db,
		cache: gocache.New(cacheTTL, cacheSweepInterval),
	}, nil
}

// DB exposes the underlying handle for components that need their own
// queries (the feedback loop).
func (s *Store) DB() *gorm.DB { return s.db }

func configKey(id string) string    { return "config:" + id }
func referenceKey(id string) string { return "reference:" + id }

// withRetry runs op, retrying once after a short backoff. SQLite under
// concurrent writers returns transient busy errors that a single retry
// absorbs; anything persistent surfaces to the caller.
func withRetry(op func() error) error {
	err := op()
	if err == nil || errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	time.Sleep(retryBackoff)
	return op()
}

// SaveConfiguration inserts or updates a configuration and refreshes
// the cache entry.
func (s *Store) SaveConfiguration(cfg *MixingConfiguration) error {
	err := withRetry(func() error {
		return s.db.Save(cfg).Error
	})
	if err != nil {
		return fmt.Errorf("store: save configuration: %w", err)
	}
	s.cache.Set(configKey(cfg.ID), cfg, gocache.DefaultExpiration)
	return nil
}

// GetConfiguration loads one configuration, cache first.
func (s *Store) GetConfiguration(id string) (*MixingConfiguration, error) {
	if hit, ok := s.cache.Get(configKey(id)); ok {
		return hit.(*MixingConfiguration), nil
	}

	var cfg MixingConfiguration
	err := withRetry(func() error {
		return s.db.First(&cfg, "id = ?", id).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: configuration %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get configuration: %w", err)
	}
	s.cache.Set(configKey(id), &cfg, gocache.DefaultExpiration)
	return &cfg, nil
}

// GetByGenre lists the configurations visible to owner for a genre,
// most used first. Visible means public or owned. Listings are not
// cached; they change with every save.
func (s *Store) GetByGenre(genre, owner string) ([]MixingConfiguration, error) {
	var configs []MixingConfiguration
	err := withRetry(func() error {
		return s.db.
			Where("genre = ?", genre).
			Where("visibility = ? OR owner = ?", VisibilityPublic, owner).
			Order("usage_count DESC, updated_at DESC").
			Find(&configs).Error
	})
	if err != nil {
		return nil, fmt.Errorf("store: list by genre: %w", err)
	}
	return configs, nil
}

// InvalidateConfiguration drops a cached configuration after an
// out-of-band update. The feedback loop writes rolling averages in raw
// SQL through DB(), which the cache cannot see.
func (s *Store) InvalidateConfiguration(id string) {
	s.cache.Delete(configKey(id))
}

// IncrementUsage bumps the usage counter atomically in SQL and drops
// the cache entry so the next read sees the new count.
func (s *Store) IncrementUsage(id string) error {
	now := time.Now()
	err := withRetry(func() error {
		res := s.db.Model(&MixingConfiguration{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"usage_count":  gorm.Expr("usage_count + 1"),
				"last_used_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: configuration %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("store: increment usage: %w", err)
	}
	s.cache.Delete(configKey(id))
	return nil
}

// SaveReference persists a reference analysis under its content ID.
func (s *Store) SaveReference(id, name, owner string, a *reference.Analysis) error {
	row := &ReferenceTrack{ID: id, Name: name, Owner: owner}
	if err := row.Encode(a); err != nil {
		return err
	}
	err := withRetry(func() error {
		return s.db.Save(row).Error
	})
	if err != nil {
		return fmt.Errorf("store: save reference: %w", err)
	}
	s.cache.Set(referenceKey(id), a, gocache.DefaultExpiration)
	return nil
}

// GetReference loads a cached or persisted reference analysis.
func (s *Store) GetReference(id string) (*reference.Analysis, error) {
	if hit, ok := s.cache.Get(referenceKey(id)); ok {
		return hit.(*reference.Analysis), nil
	}

	var row ReferenceTrack
	err := withRetry(func() error {
		return s.db.First(&row, "id = ?", id).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: reference %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get reference: %w", err)
	}
	a, err := row.Decode()
	if err != nil {
		return nil, err
	}
	s.cache.Set(referenceKey(id), a, gocache.DefaultExpiration)
	return a, nil
}

// RecordMetrics appends one quality snapshot.
func (s *Store) RecordMetrics(m *QualityMetricHistory) error {
	err := withRetry(func() error {
		return s.db.Create(m).Error
	})
	if err != nil {
		return fmt.Errorf("store: record metrics: %w", err)
	}
	return nil
}

// MetricsFor lists the quality history for a configuration, oldest
// first.
func (s *Store) MetricsFor(configID string) ([]QualityMetricHistory, error) {
	var rows []QualityMetricHistory
	err := withRetry(func() error {
		return s.db.
			Where("config_id = ?", configID).
			Order("created_at ASC").
			Find(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("store: metrics for %s: %w", configID, err)
	}
	return rows, nil
}
