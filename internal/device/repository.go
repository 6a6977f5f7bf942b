package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository is the device store the Registry and the energy monitor work
// against. Implementations must be safe for concurrent use.
type Repository interface {
	// GetByID retrieves a device by its ID.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id int64) (*Device, error)

	// List retrieves all devices in the store's enumeration order.
	List(ctx context.Context) ([]Device, error)

	// Update persists an existing device.
	// Returns ErrDeviceNotFound if the device does not exist.
	Update(ctx context.Context, device *Device) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open, migrated SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

const selectDevice = `SELECT id, name, is_on, power_watts, created_at, updated_at FROM devices`

// GetByID retrieves a device by its ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*Device, error) {
	row := r.db.QueryRowContext(ctx, selectDevice+` WHERE id = ?`, id)
	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrDeviceNotFound, id)
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	return d, nil
}

// List retrieves all devices ordered by ID.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, selectDevice+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	devices := []Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// Create inserts a new device. A zero ID is assigned by the database and
// written back to d.
func (r *SQLiteRepository) Create(ctx context.Context, d *Device) error {
	if err := validateNewDevice(d); err != nil {
		return err
	}

	now := r.now().UTC()
	d.Name = strings.TrimSpace(d.Name)
	d.CreatedAt = now
	d.UpdatedAt = now

	var id any
	if d.ID != 0 {
		id = d.ID
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO devices (id, name, is_on, power_watts, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, d.Name, d.IsOn, d.PowerWatts,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %d", ErrDeviceExists, d.ID)
		}
		return fmt.Errorf("inserting device: %w", err)
	}

	if d.ID == 0 {
		d.ID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading assigned device id: %w", err)
		}
	}
	return nil
}

// Update persists d and refreshes d.UpdatedAt.
func (r *SQLiteRepository) Update(ctx context.Context, d *Device) error {
	now := r.now().UTC()

	result, err := r.db.ExecContext(ctx,
		`UPDATE devices SET name = ?, is_on = ?, power_watts = ?, updated_at = ? WHERE id = ?`,
		d.Name, d.IsOn, d.PowerWatts, now.Format(time.RFC3339Nano), d.ID,
	)
	if err != nil {
		return fmt.Errorf("updating device: %w", err)
	}

	if err := expectOneRow(result, d.ID); err != nil {
		return err
	}
	d.UpdatedAt = now
	return nil
}

// Delete removes a device by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	return expectOneRow(result, id)
}

func expectOneRow(result sql.Result, id int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %d", ErrDeviceNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDevice(s scanner) (*Device, error) {
	var d Device
	var createdAt, updatedAt string

	if err := s.Scan(&d.ID, &d.Name, &d.IsOn, &d.PowerWatts, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if d.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
	}
	if d.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at %q: %w", updatedAt, err)
	}
	return &d, nil
}
