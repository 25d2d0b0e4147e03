package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"osrs-flipper/internal/logger"
)

// DB wraps a SQLite database connection.
type DB struct {
	sql *sql.DB
}

// DefaultPath returns flipper.db in the working directory, falling back to
// the executable's directory.
func DefaultPath() string {
	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, "flipper.db")
	}
	exe, _ := os.Executable()
	return filepath.Join(filepath.Dir(exe), "flipper.db")
}

// Open opens (or creates) the SQLite database at path and runs migrations.
// An empty path means DefaultPath.
func Open(path string) (*DB, error) {
	if path == "" {
		path = DefaultPath()
	}
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	d := &DB{sql: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	logger.Success("DB", fmt.Sprintf("Opened %s", path))
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate() error {
	version := 0
	// Missing table on a fresh file leaves version at 0.
	d.sql.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS config (
				key   TEXT PRIMARY KEY,
				value TEXT NOT NULL
			);

			CREATE TABLE IF NOT EXISTS scan_history (
				id           INTEGER PRIMARY KEY AUTOINCREMENT,
				run_id       TEXT NOT NULL,
				timestamp    TEXT NOT NULL,
				item_count   INTEGER NOT NULL DEFAULT 0,
				count        INTEGER NOT NULL,
				top_profit   INTEGER NOT NULL DEFAULT 0,
				total_profit INTEGER NOT NULL DEFAULT 0,
				duration_ms  INTEGER NOT NULL DEFAULT 0,
				params_json  TEXT DEFAULT '{}'
			);
			CREATE INDEX IF NOT EXISTS idx_scan_history_ts ON scan_history(timestamp);
			CREATE UNIQUE INDEX IF NOT EXISTS idx_scan_history_run ON scan_history(run_id);

			CREATE TABLE IF NOT EXISTS flip_results (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				scan_id       INTEGER NOT NULL REFERENCES scan_history(id),
				rank          INTEGER NOT NULL,
				item_id       INTEGER NOT NULL,
				name          TEXT,
				price_src     TEXT,
				buy_limit     INTEGER,
				buy_price     INTEGER,
				sell_price    INTEGER,
				tax           INTEGER,
				quantity      INTEGER,
				gp_needed     INTEGER,
				profit_unit   INTEGER,
				est_profit    INTEGER,
				roi_pct       REAL,
				volume        INTEGER,
				cycles        REAL,
				daily_est     REAL,
				daily_cap     REAL,
				eta_hours     REAL,
				profit_hour   REAL,
				participation REAL,
				ha_value      INTEGER,
				ha_floor      INTEGER,
				ha_net        INTEGER,
				ha_safe       INTEGER,
				score         REAL
			);
			CREATE INDEX IF NOT EXISTS idx_flip_scan ON flip_results(scan_id);
			CREATE INDEX IF NOT EXISTS idx_flip_item ON flip_results(item_id);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
		logger.Info("DB", "Applied migration v1")
	}

	if version < 2 {
		_, err := d.sql.Exec(`
			ALTER TABLE scan_history ADD COLUMN drops_json TEXT DEFAULT '{}';

			INSERT OR IGNORE INTO schema_version (version) VALUES (2);
		`)
		if err != nil {
			return fmt.Errorf("migration v2: %w", err)
		}
		logger.Info("DB", "Applied migration v2 (drop reasons)")
	}

	return nil
}
