// Package store implements the record store gateway (spec §4.4): typed
// operations over the lap_personal_records table. Backed by sqlite3 via
// sqlx, following ClusterCockpit-cc-backend's internal/repository
// connection/migration idiom.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/acsp-sidecar/sidecar/internal/classmap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// LapRecord mirrors the persisted row (spec §3): composite primary key
// (driver_guid, track_name, track_config, perf_class).
type LapRecord struct {
	DriverGUID  string    `db:"driver_guid"`
	TrackName   string    `db:"track_name"`
	TrackConfig string    `db:"track_config"`
	PerfClass   string    `db:"perf_class"`
	Car         string    `db:"car"`
	DriverName  string    `db:"driver_name"`
	LapTimeMs   uint32    `db:"lap_time_ms"`
	GripLevel   float32   `db:"grip_level"`
	Timestamp   time.Time `db:"timestamp"`
}

// Store is the record store gateway. All statements share one pooled
// connection, and RecordPB's delete+insert runs in one transaction. The
// lookup RecordPB makes before that transaction is not part of it, so
// RecordPB calls for the same key are only atomic with respect to each
// other when a single caller issues them in sequence, as the pipeline does.
type Store struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

// Open connects to the sqlite3 database at path, runs pending migrations,
// and returns a ready Store. sqlite does not multithread writers, so the
// connection pool is capped at one (ClusterCockpit-cc-backend's
// dbConnection.go does the same for exactly this reason).
func Open(path string, logger zerolog.Logger) (*Store, error) {
	db, err := sqlx.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", path))
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := runMigrations(db.DB, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating store: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

func runMigrations(db *sql.DB, logger zerolog.Logger) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("sqlite3 migrate driver: %w", err)
	}
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info().Msg("store migrations up to date")
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetPB looks up a driver's personal best by (driver_guid, track, config,
// class_of(car)).
func (s *Store) GetPB(ctx context.Context, driverGUID, track, config, car string) (*LapRecord, error) {
	return s.getByKey(ctx, driverGUID, track, config, classmap.ClassOf(car))
}

func (s *Store) getByKey(ctx context.Context, driverGUID, track, config, class string) (*LapRecord, error) {
	var rec LapRecord
	err := s.db.GetContext(ctx, &rec, `
		SELECT driver_guid, track_name, track_config, perf_class, car, driver_name, lap_time_ms, grip_level, timestamp
		FROM lap_personal_records
		WHERE driver_guid = ? AND track_name = ? AND track_config = ? AND perf_class = ?`,
		driverGUID, track, config, class)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get_pb: %w", err)
	}
	return &rec, nil
}

// RecordPB replaces the row for (driver_guid, track, config, class_of(car))
// if lapMs improves on it (or no row exists yet), and returns diff = lapMs
// - previous.lap_time_ms unconditionally. diff == lapMs signals a
// first-ever record for this key (spec §4.4).
func (s *Store) RecordPB(ctx context.Context, driverGUID, track, config, driverName string, lapMs uint32, car string, grip float32) (int64, error) {
	class := classmap.ClassOf(car)

	prev, err := s.getByKey(ctx, driverGUID, track, config, class)
	if err != nil {
		return 0, err
	}

	var diff int64
	if prev == nil {
		diff = int64(lapMs)
	} else {
		diff = int64(lapMs) - int64(prev.LapTimeMs)
	}

	if prev == nil || diff < 0 {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return 0, fmt.Errorf("record_pb begin: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM lap_personal_records
			WHERE driver_guid = ? AND track_name = ? AND track_config = ? AND perf_class = ?`,
			driverGUID, track, config, class); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("record_pb delete: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO lap_personal_records
				(driver_guid, track_name, track_config, perf_class, car, driver_name, lap_time_ms, grip_level, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			driverGUID, track, config, class, car, driverName, lapMs, grip, time.Now().UTC()); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("record_pb insert: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return 0, fmt.Errorf("record_pb commit: %w", err)
		}
	}

	return diff, nil
}

// CompareToServerRecord looks up the fastest row over the class (no driver
// filter) and returns diff = lapMs - serverRecord.lap_time_ms. diff ==
// lapMs signals the first-ever record for this class (spec §4.4).
func (s *Store) CompareToServerRecord(ctx context.Context, track, config, car string, lapMs uint32) (int64, error) {
	class := classmap.ClassOf(car)

	var rec LapRecord
	err := s.db.GetContext(ctx, &rec, `
		SELECT driver_guid, track_name, track_config, perf_class, car, driver_name, lap_time_ms, grip_level, timestamp
		FROM lap_personal_records
		WHERE track_name = ? AND track_config = ? AND perf_class = ?
		ORDER BY lap_time_ms ASC
		LIMIT 1`,
		track, config, class)
	if err == sql.ErrNoRows {
		return int64(lapMs), nil
	}
	if err != nil {
		return 0, fmt.Errorf("compare_to_server_record: %w", err)
	}

	return int64(lapMs) - int64(rec.LapTimeMs), nil
}

// TopRecords returns the fastest n rows for (track, config, class_of(car)),
// fastest first.
func (s *Store) TopRecords(ctx context.Context, track, config, car string, n int) ([]LapRecord, error) {
	class := classmap.ClassOf(car)

	var recs []LapRecord
	err := s.db.SelectContext(ctx, &recs, `
		SELECT driver_guid, track_name, track_config, perf_class, car, driver_name, lap_time_ms, grip_level, timestamp
		FROM lap_personal_records
		WHERE track_name = ? AND track_config = ? AND perf_class = ?
		ORDER BY lap_time_ms ASC
		LIMIT ?`,
		track, config, class, n)
	if err != nil {
		return nil, fmt.Errorf("top_records: %w", err)
	}
	return recs, nil
}

// RecentBrokenRecords returns, for each (track, config, class) group, the
// single surviving row (the group's current best), ordered by timestamp
// descending and capped at limit.
func (s *Store) RecentBrokenRecords(ctx context.Context, limit int) ([]LapRecord, error) {
	var recs []LapRecord
	err := s.db.SelectContext(ctx, &recs, `
		SELECT l.driver_guid, l.track_name, l.track_config, l.perf_class, l.car, l.driver_name, l.lap_time_ms, l.grip_level, l.timestamp
		FROM lap_personal_records l
		JOIN (
			SELECT track_name, track_config, perf_class, MIN(lap_time_ms) AS lap_record
			FROM lap_personal_records
			GROUP BY track_name, track_config, perf_class
		) best
		ON l.track_name = best.track_name
		AND l.track_config = best.track_config
		AND l.perf_class = best.perf_class
		AND l.lap_time_ms = best.lap_record
		ORDER BY l.timestamp DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent_broken_records: %w", err)
	}
	return recs, nil
}

// TrackConfig names a known track/config pair.
type TrackConfig struct {
	TrackName   string `db:"track_name"`
	TrackConfig string `db:"track_config"`
}

// UniqueTracksConfigs lists distinct (track, config) pairs present in the
// store, supplementing the original's HTML records page with the data it
// drew its track dropdown from.
func (s *Store) UniqueTracksConfigs(ctx context.Context) ([]TrackConfig, error) {
	var out []TrackConfig
	err := s.db.SelectContext(ctx, &out, `
		SELECT DISTINCT track_name, track_config FROM lap_personal_records
		ORDER BY track_name, track_config`)
	if err != nil {
		return nil, fmt.Errorf("unique_tracks_configs: %w", err)
	}
	return out, nil
}

// UniqueCarNames lists distinct car model strings present in the store,
// supplementing the original's HTML records page car dropdown.
func (s *Store) UniqueCarNames(ctx context.Context) ([]string, error) {
	var out []string
	err := s.db.SelectContext(ctx, &out, `
		SELECT DISTINCT car FROM lap_personal_records ORDER BY car`)
	if err != nil {
		return nil, fmt.Errorf("unique_car_names: %w", err)
	}
	return out, nil
}
