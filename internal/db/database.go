// Package db provides database connectivity and data models for rangescan.
// It handles schema migrations, scan history, device tracking, and
// vulnerability finding storage, and is the sole mutator of durable state.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/cyberrange/rangescan/internal/errors"
	"github.com/cyberrange/rangescan/internal/logging"
)

const (
	// Default database configuration values.
	defaultPostgresPort    = 5432
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5
	defaultConnMaxIdleTime = 5
)

// sanitizeDBError converts raw database errors into safe, sanitized errors
// that don't expose internal SQL details or credentials to callers.
// The original error is preserved in the Cause field for internal debugging.
func sanitizeDBError(operation string, err error) error {
	if err == nil {
		return nil
	}

	if err == sql.ErrNoRows {
		dbErr := errors.NewDatabaseError(errors.CodeNotFound, "Resource not found")
		dbErr.Operation = operation
		dbErr.Cause = err
		return dbErr
	}

	if pqErr, ok := err.(*pq.Error); ok {
		var dbErr *errors.DatabaseError
		switch pqErr.Code {
		case "23505": // unique_violation
			dbErr = errors.NewDatabaseError(errors.CodeConflict, "Resource already exists")
		case "23502": // not_null_violation
			dbErr = errors.NewDatabaseError(errors.CodeValidation, "Required field is missing")
		case "57014": // query_canceled
			dbErr = errors.NewDatabaseError(errors.CodeCanceled, "Database operation was canceled")
		case "08000", "08003", "08006": // connection errors
			dbErr = errors.NewDatabaseError(errors.CodeDatabaseConnection, "Database connection error")
		default:
			dbErr = errors.NewDatabaseError(errors.CodeDatabaseQuery,
				fmt.Sprintf("Database operation failed: %s", operation))
		}
		dbErr.Operation = operation
		dbErr.Cause = err
		return dbErr
	}

	dbErr := errors.NewDatabaseError(errors.CodeDatabaseQuery,
		fmt.Sprintf("Database operation failed: %s", operation))
	dbErr.Operation = operation
	dbErr.Cause = err
	return dbErr
}

// DB wraps sqlx.DB with additional functionality.
type DB struct {
	*sqlx.DB
}

// Config holds database configuration.
type Config struct {
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port"`
	Database        string        `yaml:"database" json:"database"`
	Username        string        `yaml:"username" json:"username"`
	Password        string        `yaml:"password" json:"password"`
	SSLMode         string        `yaml:"ssl_mode" json:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time"`
}

// DefaultConfig returns the default database configuration.
// Database name, username, and password must be explicitly configured.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            defaultPostgresPort,
		SSLMode:         "disable",
		MaxOpenConns:    defaultMaxOpenConns,
		MaxIdleConns:    defaultMaxIdleConns,
		ConnMaxLifetime: defaultConnMaxLifetime * time.Minute,
		ConnMaxIdleTime: defaultConnMaxIdleTime * time.Minute,
	}
}

// Connect establishes a connection to PostgreSQL.
// Returns sanitized errors that don't leak credentials or DSN details.
func Connect(ctx context.Context, config *Config) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		config.Host, config.Port, config.Database,
		config.Username, config.Password, config.SSLMode,
	)

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, errors.ErrDatabaseConnection(err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.ErrorDatabase("Failed to close database connection after ping failure", closeErr)
		}
		return nil, errors.WrapDatabaseError(errors.CodeDatabaseConnection,
			"Failed to verify database connection", err)
	}

	logging.Info("Connected to database",
		"host", config.Host, "port", config.Port, "database", config.Database)
	return &DB{DB: db}, nil
}

// ScanRepository handles scan history operations. Scan rows are pure
// appends; one row per invocation, no dedup.
type ScanRepository struct {
	db *DB
}

// NewScanRepository creates a new scan repository.
func NewScanRepository(db *DB) *ScanRepository {
	return &ScanRepository{db: db}
}

// Record appends a completed scan invocation with its raw output.
func (r *ScanRepository) Record(ctx context.Context, record *ScanRecord) error {
	query := `
		INSERT INTO scans (id, target, scan_type, created_at, raw_results)
		VALUES (:id, :target, :scan_type, :created_at, :raw_results)`

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return sanitizeDBError("record scan", err)
	}

	return nil
}

// List retrieves the most recent scans, raw output excluded.
func (r *ScanRepository) List(ctx context.Context, limit int) ([]*ScanRecord, error) {
	var records []*ScanRecord
	query := `
		SELECT id, target, scan_type, created_at, '' AS raw_results
		FROM scans ORDER BY created_at DESC LIMIT $1`

	if err := r.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, sanitizeDBError("list scans", err)
	}

	return records, nil
}

// GetByID retrieves one scan including its raw output.
func (r *ScanRepository) GetByID(ctx context.Context, id uuid.UUID) (*ScanRecord, error) {
	var record ScanRecord
	query := `SELECT * FROM scans WHERE id = $1`

	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, sanitizeDBError("get scan", err)
	}

	return &record, nil
}

// DeviceRepository handles device operations.
type DeviceRepository struct {
	db *DB
}

// NewDeviceRepository creates a new device repository.
func NewDeviceRepository(db *DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Upsert creates a device on first sighting of its IP and updates it in
// place on every re-sighting. NULL mac/vendor/os never overwrite a
// previously known non-NULL value; non-NULL values always win.
func (r *DeviceRepository) Upsert(ctx context.Context, device *Device) error {
	query := `
		INSERT INTO devices (id, ip, mac, vendor, os, status, last_seen)
		VALUES (:id, :ip, :mac, :vendor, :os, :status, :last_seen)
		ON CONFLICT (ip)
		DO UPDATE SET
			mac = COALESCE(EXCLUDED.mac, devices.mac),
			vendor = COALESCE(EXCLUDED.vendor, devices.vendor),
			os = COALESCE(EXCLUDED.os, devices.os),
			status = EXCLUDED.status,
			last_seen = EXCLUDED.last_seen
		RETURNING id, last_seen`

	if device.ID == uuid.Nil {
		device.ID = uuid.New()
	}
	if device.LastSeen.IsZero() {
		device.LastSeen = time.Now()
	}

	rows, err := r.db.NamedQueryContext(ctx, query, device)
	if err != nil {
		return sanitizeDBError("upsert device", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.ErrorDatabase("Failed to close rows", err)
		}
	}()

	if rows.Next() {
		if err := rows.Scan(&device.ID, &device.LastSeen); err != nil {
			return sanitizeDBError("scan upserted device", err)
		}
	}

	return nil
}

// GetByIP retrieves a device by IP address.
func (r *DeviceRepository) GetByIP(ctx context.Context, ip IPAddr) (*Device, error) {
	var device Device
	query := `SELECT * FROM devices WHERE ip = $1`

	if err := r.db.GetContext(ctx, &device, query, ip); err != nil {
		return nil, sanitizeDBError("get device", err)
	}

	return &device, nil
}

// List retrieves all known devices ordered by IP.
func (r *DeviceRepository) List(ctx context.Context) ([]*Device, error) {
	var devices []*Device
	query := `SELECT * FROM devices ORDER BY ip`

	if err := r.db.SelectContext(ctx, &devices, query); err != nil {
		return nil, sanitizeDBError("list devices", err)
	}

	return devices, nil
}

// FindingRepository handles vulnerability finding operations.
type FindingRepository struct {
	db *DB
}

// NewFindingRepository creates a new finding repository.
func NewFindingRepository(db *DB) *FindingRepository {
	return &FindingRepository{db: db}
}

// UpsertInformational inserts an open-port finding if its natural key is
// absent. An existing row is left untouched; informational findings are
// never escalated by repetition.
func (r *FindingRepository) UpsertInformational(ctx context.Context, finding *Finding) error {
	query := `
		INSERT INTO vulnerabilities (id, device_ip, port, service, evidence, severity, detected_at)
		VALUES (:id, :device_ip, :port, :service, :evidence, :severity, :detected_at)
		ON CONFLICT (device_ip, port, service) DO NOTHING`

	if finding.ID == uuid.Nil {
		finding.ID = uuid.New()
	}
	if finding.Severity == "" {
		finding.Severity = SeverityInformational
	}
	if finding.DetectedAt.IsZero() {
		finding.DetectedAt = time.Now()
	}

	if _, err := r.db.NamedExecContext(ctx, query, finding); err != nil {
		return sanitizeDBError("upsert informational finding", err)
	}

	return nil
}

// UpsertEscalated inserts a script-evidence finding, or upgrades the row
// already holding its natural key: severity forced to High, evidence and
// timestamp refreshed. Later script evidence always overwrites earlier.
func (r *FindingRepository) UpsertEscalated(ctx context.Context, finding *Finding) error {
	query := `
		INSERT INTO vulnerabilities (id, device_ip, port, service, evidence, severity, detected_at)
		VALUES (:id, :device_ip, :port, :service, :evidence, :severity, :detected_at)
		ON CONFLICT (device_ip, port, service)
		DO UPDATE SET
			evidence = EXCLUDED.evidence,
			severity = EXCLUDED.severity,
			detected_at = EXCLUDED.detected_at`

	if finding.ID == uuid.Nil {
		finding.ID = uuid.New()
	}
	finding.Severity = SeverityHigh
	if finding.DetectedAt.IsZero() {
		finding.DetectedAt = time.Now()
	}

	if _, err := r.db.NamedExecContext(ctx, query, finding); err != nil {
		return sanitizeDBError("upsert escalated finding", err)
	}

	return nil
}

// List retrieves findings, optionally filtered by severity.
func (r *FindingRepository) List(ctx context.Context, severity string) ([]*Finding, error) {
	var findings []*Finding
	var err error

	if severity != "" {
		query := `SELECT * FROM vulnerabilities WHERE severity = $1 ORDER BY device_ip, port`
		err = r.db.SelectContext(ctx, &findings, query, severity)
	} else {
		query := `SELECT * FROM vulnerabilities ORDER BY device_ip, port`
		err = r.db.SelectContext(ctx, &findings, query)
	}
	if err != nil {
		return nil, sanitizeDBError("list findings", err)
	}

	return findings, nil
}

// ListByDevice retrieves all findings for one device.
func (r *FindingRepository) ListByDevice(ctx context.Context, ip IPAddr) ([]*Finding, error) {
	var findings []*Finding
	query := `SELECT * FROM vulnerabilities WHERE device_ip = $1 ORDER BY port`

	if err := r.db.SelectContext(ctx, &findings, query, ip); err != nil {
		return nil, sanitizeDBError("list findings by device", err)
	}

	return findings, nil
}

// StatsRepository aggregates store-wide counts for summary display.
type StatsRepository struct {
	db *DB
}

// NewStatsRepository creates a new stats repository.
func NewStatsRepository(db *DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// Collect gathers scan, device, and finding counts in one query.
func (r *StatsRepository) Collect(ctx context.Context) (*Stats, error) {
	var stats Stats
	query := `
		SELECT
			(SELECT COUNT(*) FROM scans) AS total_scans,
			(SELECT COUNT(*) FROM devices) AS total_devices,
			(SELECT COUNT(*) FROM devices WHERE status = 'up') AS live_devices,
			(SELECT COUNT(*) FROM vulnerabilities) AS total_findings,
			(SELECT COUNT(*) FROM vulnerabilities WHERE severity = 'High') AS high_findings`

	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, sanitizeDBError("collect stats", err)
	}

	return &stats, nil
}
