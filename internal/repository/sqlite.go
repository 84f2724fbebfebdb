package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mr1hm/disaster-watch/internal/models"
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// :memory: databases are per-connection
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS disasters (
			source TEXT NOT NULL,
			id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			category TEXT NOT NULL,
			severity INTEGER NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			location_name TEXT,
			date_ms INTEGER NOT NULL,
			url TEXT,
			magnitude REAL,
			affected_area TEXT,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (source, id)
		);

		CREATE TABLE IF NOT EXISTS kv (
			namespace TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (namespace, key)
		);

		CREATE INDEX IF NOT EXISTS idx_disasters_date ON disasters(date_ms);
		CREATE INDEX IF NOT EXISTS idx_disasters_category ON disasters(category);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func (s *SQLiteDB) Add(ctx context.Context, e *models.DisasterEvent) error {
	var magnitude sql.NullFloat64
	if e.Magnitude != nil {
		magnitude = sql.NullFloat64{Float64: *e.Magnitude, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO disasters (
			source, id, title, description, category, severity,
			latitude, longitude, location_name, date_ms, url,
			magnitude, affected_area, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source, id) DO NOTHING`,
		e.Source, e.ID, e.Title, e.Description, string(e.Category), int(e.Severity),
		e.Location.Coordinates.Latitude(), e.Location.Coordinates.Longitude(), e.Location.Name,
		e.Date.UnixMilli(), e.URL, magnitude, e.AffectedArea, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("error inserting disaster %s: %w", e.Key(), err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error inserting disaster %s: %w", e.Key(), err)
	}
	if n == 0 {
		return fmt.Errorf("disaster %s: %w", e.Key(), ErrDuplicate)
	}
	return nil
}

func (s *SQLiteDB) Exists(ctx context.Context, source, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM disasters WHERE source = ? AND id = ?`, source, id,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error checking disaster existence: %w", err)
	}
	return true, nil
}

const selectColumns = `
	SELECT source, id, title, description, category, severity,
		latitude, longitude, location_name, date_ms, url,
		magnitude, affected_area
	FROM disasters`

func (s *SQLiteDB) GetByID(ctx context.Context, source, id string) (*models.DisasterEvent, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE source = ? AND id = ?`, source, id)

	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("disaster %s:%s: %w", source, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error getting disaster: %w", err)
	}
	return e, nil
}

func (s *SQLiteDB) ListDisasters(ctx context.Context, opts ArchiveFilter) ([]models.DisasterEvent, error) {
	var (
		where []string
		args  []any
	)

	if opts.Category != nil {
		where = append(where, "category = ?")
		args = append(args, string(*opts.Category))
	}
	if opts.MinSeverity != nil {
		where = append(where, "severity >= ?")
		args = append(args, int(*opts.MinSeverity))
	}
	if opts.Since != nil {
		where = append(where, "date_ms >= ?")
		args = append(args, opts.Since.UnixMilli())
	}
	if opts.Source != "" {
		where = append(where, "source = ?")
		args = append(args, opts.Source)
	}

	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := max(opts.Offset, 0)

	query += " ORDER BY date_ms DESC, source, id LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing disasters: %w", err)
	}
	defer rows.Close()

	results := make([]models.DisasterEvent, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning disaster: %w", err)
		}
		results = append(results, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating disasters: %w", err)
	}

	return results, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (*models.DisasterEvent, error) {
	var (
		e            models.DisasterEvent
		category     string
		severity     int
		lat, lon     float64
		description  sql.NullString
		locationName sql.NullString
		dateMs       int64
		url          sql.NullString
		magnitude    sql.NullFloat64
		affectedArea sql.NullString
	)

	err := row.Scan(
		&e.Source, &e.ID, &e.Title, &description, &category, &severity,
		&lat, &lon, &locationName, &dateMs, &url,
		&magnitude, &affectedArea,
	)
	if err != nil {
		return nil, err
	}

	e.Description = description.String
	e.Category = models.Category(category)
	e.Severity = models.Severity(severity)
	e.Location = models.Location{
		Coordinates: models.NewCoordinates(lat, lon),
		Name:        locationName.String,
	}
	e.Date = time.UnixMilli(dateMs).UTC()
	e.URL = url.String
	e.AffectedArea = affectedArea.String
	if magnitude.Valid {
		m := magnitude.Float64
		e.Magnitude = &m
	}

	return &e, nil
}
