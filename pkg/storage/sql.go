package storage

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/matzehuels/reposcout/pkg/errors"
	"github.com/matzehuels/reposcout/pkg/search"
)

// SQLStore stores runs in PostgreSQL or MySQL.
//
// Runs live in the runs table and their records in run_records, keyed by
// (run_id, position). Queries are written with ? placeholders and rebound
// for the driver.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore wraps an open connection. The driver name of db decides the
// placeholder style and the upsert dialect.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// OpenSQL opens a postgres or mysql connection from cfg.
func OpenSQL(ctx context.Context, cfg Config) (*SQLStore, error) {
	dsn, err := sqlDSN(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.ConnectContext(ctx, cfg.Driver, dsn)
	if err != nil {
		return nil, wrapf(err, "connect %s", cfg.Driver)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	db.SetConnMaxLifetime(30 * time.Minute)
	return NewSQLStore(db), nil
}

// sqlDSN normalizes cfg.DSN for the driver: postgres URLs are converted to
// key=value form and MySQL DSNs get parseTime enabled.
func sqlDSN(cfg Config) (string, error) {
	switch cfg.Driver {
	case DriverPostgres:
		if strings.HasPrefix(cfg.DSN, "postgres://") || strings.HasPrefix(cfg.DSN, "postgresql://") {
			dsn, err := pq.ParseURL(cfg.DSN)
			if err != nil {
				return "", errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid postgres url")
			}
			return dsn, nil
		}
		return cfg.DSN, nil
	case DriverMySQL:
		mc, err := mysql.ParseDSN(cfg.DSN)
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid mysql dsn")
		}
		mc.ParseTime = true
		mc.Loc = time.UTC
		return mc.FormatDSN(), nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unsupported sql driver %q", cfg.Driver)
}

var schema = map[string][]string{
	DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS runs (
			id VARCHAR(36) PRIMARY KEY,
			query TEXT NOT NULL,
			identity TEXT NOT NULL,
			shape VARCHAR(16) NOT NULL,
			fetched INTEGER NOT NULL,
			matched INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS run_records (
			run_id VARCHAR(36) NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			owner TEXT NOT NULL,
			description TEXT NOT NULL,
			stars INTEGER NOT NULL,
			forks INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			last_commit TIMESTAMPTZ NOT NULL,
			url TEXT NOT NULL,
			PRIMARY KEY (run_id, position)
		)`,
	},
	DriverMySQL: {
		`CREATE TABLE IF NOT EXISTS runs (
			id VARCHAR(36) PRIMARY KEY,
			query TEXT NOT NULL,
			identity TEXT NOT NULL,
			shape VARCHAR(16) NOT NULL,
			fetched INT NOT NULL,
			matched INT NOT NULL,
			created_at DATETIME(6) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS run_records (
			run_id VARCHAR(36) NOT NULL,
			position INT NOT NULL,
			name VARCHAR(255) NOT NULL,
			owner VARCHAR(255) NOT NULL,
			description TEXT NOT NULL,
			stars INT NOT NULL,
			forks INT NOT NULL,
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL,
			last_commit DATETIME(6) NOT NULL,
			url VARCHAR(512) NOT NULL,
			PRIMARY KEY (run_id, position),
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		)`,
	},
}

var upsertRun = map[string]string{
	DriverPostgres: `INSERT INTO runs (id, query, identity, shape, fetched, matched, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET query = EXCLUDED.query, identity = EXCLUDED.identity,
		shape = EXCLUDED.shape, fetched = EXCLUDED.fetched, matched = EXCLUDED.matched, created_at = EXCLUDED.created_at`,
	DriverMySQL: `INSERT INTO runs (id, query, identity, shape, fetched, matched, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE query = VALUES(query), identity = VALUES(identity),
		shape = VALUES(shape), fetched = VALUES(fetched), matched = VALUES(matched), created_at = VALUES(created_at)`,
}

const (
	deleteRecordsQuery = `DELETE FROM run_records WHERE run_id = ?`
	insertRecordQuery  = `INSERT INTO run_records (run_id, position, name, owner, description, stars, forks, created_at, updated_at, last_commit, url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	selectRunQuery     = `SELECT id, query, identity, shape, fetched, matched, created_at FROM runs WHERE id = ?`
	selectRunsQuery    = `SELECT id, query, identity, shape, fetched, matched, created_at FROM runs ORDER BY created_at DESC LIMIT ?`
	selectRecordsQuery = `SELECT name, owner, description, stars, forks, created_at, updated_at, last_commit, url
		FROM run_records WHERE run_id = ? ORDER BY position`
)

type runRow struct {
	ID        string    `db:"id"`
	Query     string    `db:"query"`
	Identity  string    `db:"identity"`
	Shape     string    `db:"shape"`
	Fetched   int       `db:"fetched"`
	Matched   int       `db:"matched"`
	CreatedAt time.Time `db:"created_at"`
}

func (r runRow) run() (Run, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return Run{}, wrapf(err, "parse run id %q", r.ID)
	}
	return Run{
		ID:       id,
		Query:    r.Query,
		Identity: r.Identity,
		Shape:    r.Shape,
		Fetched:  r.Fetched,
		Matched:  r.Matched,
		At:       r.CreatedAt.UTC(),
	}, nil
}

func (s *SQLStore) dialect() string {
	if s.db.DriverName() == DriverMySQL {
		return DriverMySQL
	}
	return DriverPostgres
}

// Migrate creates the runs and run_records tables if they do not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema[s.dialect()] {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return wrapf(err, "migrate")
		}
	}
	return nil
}

// SaveRun writes run and replaces its records in one transaction.
func (s *SQLStore) SaveRun(ctx context.Context, run *Run) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrapf(err, "begin")
	}
	defer tx.Rollback()

	id := run.ID.String()
	if _, err := tx.ExecContext(ctx, tx.Rebind(upsertRun[s.dialect()]),
		id, run.Query, run.Identity, run.Shape, run.Fetched, run.Matched, run.At.UTC()); err != nil {
		return wrapf(err, "upsert run %s", id)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(deleteRecordsQuery), id); err != nil {
		return wrapf(err, "delete records of run %s", id)
	}
	insert := tx.Rebind(insertRecordQuery)
	for i, r := range run.Records {
		if _, err := tx.ExecContext(ctx, insert,
			id, i, r.Name, r.Owner, r.Description, r.Stars, r.Forks,
			r.CreatedAt.UTC(), r.UpdatedAt.UTC(), r.LastCommit.UTC(), r.URL); err != nil {
			return wrapf(err, "insert record %s of run %s", r.FullName(), id)
		}
	}
	if err := tx.Commit(); err != nil {
		return wrapf(err, "commit run %s", id)
	}
	return nil
}

// Run loads a run and its records.
func (s *SQLStore) Run(ctx context.Context, id uuid.UUID) (*Run, error) {
	var row runRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(selectRunQuery), id.String())
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, wrapf(err, "get run %s", id)
	}
	run, err := row.run()
	if err != nil {
		return nil, err
	}

	var records []search.Record
	if err := s.db.SelectContext(ctx, &records, s.db.Rebind(selectRecordsQuery), id.String()); err != nil {
		return nil, wrapf(err, "select records of run %s", id)
	}
	for i := range records {
		records[i].CreatedAt = records[i].CreatedAt.UTC()
		records[i].UpdatedAt = records[i].UpdatedAt.UTC()
		records[i].LastCommit = records[i].LastCommit.UTC()
	}
	run.Records = records
	return &run, nil
}

// Runs lists the most recent runs.
func (s *SQLStore) Runs(ctx context.Context, limit int) ([]Run, error) {
	var rows []runRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(selectRunsQuery), listLimit(limit)); err != nil {
		return nil, wrapf(err, "select runs")
	}
	runs := make([]Run, 0, len(rows))
	for _, row := range rows {
		run, err := row.run()
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
