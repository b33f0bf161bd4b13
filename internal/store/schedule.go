package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/QuanLionSoft/KonyaBusProject/internal/capacity"
)

// Vehicle lifecycle statuses.
const (
	VehicleIdle      = "IDLE"
	VehicleInService = "IN_SERVICE"
)

// Departure is one scheduled departure, planned or operator-added.
// Extras carry the vehicle assigned to run them.
type Departure struct {
	LineID    string           `json:"line_id"`
	DayType   capacity.DayType `json:"day_type"`
	Departure string           `json:"departure"` // HH:MM
	Extra     bool             `json:"extra"`
	VehicleNo string           `json:"vehicle_no,omitempty"`
	Reason    string           `json:"reason,omitempty"`
}

// AddTimetableEntry records one planned departure, idempotently.
func (s *Store) AddTimetableEntry(ctx context.Context, lineID string, day capacity.DayType, departure string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO timetable (line_id, day_type, departure)
		VALUES (?, ?, ?)
		ON CONFLICT(line_id, day_type, departure) DO NOTHING`,
		lineID, string(day), departure)
	if err != nil {
		return fmt.Errorf("failed to add timetable entry: %w", err)
	}
	return nil
}

// CreateExtraDeparture records an operator-added departure, marks its
// vehicle in service and returns the generated identifier.
func (s *Store) CreateExtraDeparture(ctx context.Context, lineID string, day capacity.DayType, departure, vehicleNo, reason string) (string, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id := uuid.NewString()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO extra_departures (id, line_id, day_type, departure, vehicle_no, reason)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, lineID, string(day), departure, vehicleNo, reason)
	if err != nil {
		return "", fmt.Errorf("failed to create extra departure: %w", err)
	}
	if vehicleNo != "" {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO vehicles (vehicle_no, line_id, status, updated_at)
			VALUES (?, ?, ?, datetime('now'))
			ON CONFLICT(vehicle_no) DO UPDATE SET
				line_id = excluded.line_id,
				status = excluded.status,
				updated_at = excluded.updated_at`,
			vehicleNo, lineID, VehicleInService); err != nil {
			return "", fmt.Errorf("failed to mark vehicle in service: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit extra departure: %w", err)
	}
	return id, nil
}

// DeleteExtraDeparture removes an operator-added departure. A vehicle
// with no remaining extra departures goes back to idle.
func (s *Store) DeleteExtraDeparture(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var vehicleNo string
	err = tx.QueryRowContext(ctx,
		"SELECT vehicle_no FROM extra_departures WHERE id = ?", id).Scan(&vehicleNo)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to query extra departure: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM extra_departures WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete extra departure: %w", err)
	}
	if vehicleNo != "" {
		if _, err := tx.ExecContext(ctx, `
			UPDATE vehicles SET status = ?, updated_at = datetime('now')
			WHERE vehicle_no = ?
			  AND NOT EXISTS (SELECT 1 FROM extra_departures WHERE vehicle_no = ?)`,
			VehicleIdle, vehicleNo, vehicleNo); err != nil {
			return fmt.Errorf("failed to release vehicle: %w", err)
		}
	}
	return tx.Commit()
}

// DeparturesForDay returns the merged planned and extra departures for
// one line on one day type, sorted by time of day.
func (s *Store) DeparturesForDay(ctx context.Context, lineID string, day capacity.DayType) ([]Departure, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT departure, 0 AS extra, '' AS vehicle_no, '' AS reason
		FROM timetable WHERE line_id = ? AND day_type = ?
		UNION ALL
		SELECT departure, 1 AS extra, vehicle_no, reason
		FROM extra_departures WHERE line_id = ? AND day_type = ?`,
		lineID, string(day), lineID, string(day))
	if err != nil {
		return nil, fmt.Errorf("failed to query departures: %w", err)
	}
	defer rows.Close()

	var deps []Departure
	for rows.Next() {
		var d Departure
		var extra int
		if err := rows.Scan(&d.Departure, &extra, &d.VehicleNo, &d.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan departure row: %w", err)
		}
		d.LineID = lineID
		d.DayType = day
		d.Extra = extra == 1
		deps = append(deps, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(deps, func(i, j int) bool {
		return deps[i].Departure < deps[j].Departure
	})
	return deps, nil
}

// TripsPerHour counts scheduled departures per hour for a line and day
// type, extras included. Satisfies the capacity analyzer's schedule
// source.
func (s *Store) TripsPerHour(lineID string, day capacity.DayType) (map[int]int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	deps, err := s.DeparturesForDay(ctx, lineID, day)
	if err != nil {
		return nil, err
	}
	out := make(map[int]int)
	for _, d := range deps {
		if h, ok := departureHour(d.Departure); ok {
			out[h]++
		}
	}
	return out, nil
}

func departureHour(hhmm string) (int, bool) {
	i := strings.IndexByte(hhmm, ':')
	if i <= 0 {
		return 0, false
	}
	h, err := strconv.Atoi(hhmm[:i])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	return h, true
}

// VehicleStatus returns a vehicle's current status or ErrNotFound.
func (s *Store) VehicleStatus(ctx context.Context, vehicleNo string) (string, error) {
	var status string
	err := s.conn.QueryRowContext(ctx,
		"SELECT status FROM vehicles WHERE vehicle_no = ?", vehicleNo).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query vehicle: %w", err)
	}
	return status, nil
}

// SetVehicleStatus upserts a vehicle's line assignment and status.
func (s *Store) SetVehicleStatus(ctx context.Context, vehicleNo, lineID, status string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO vehicles (vehicle_no, line_id, status, updated_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT(vehicle_no) DO UPDATE SET
			line_id = excluded.line_id,
			status = excluded.status,
			updated_at = excluded.updated_at`,
		vehicleNo, lineID, status)
	if err != nil {
		return fmt.Errorf("failed to set vehicle status: %w", err)
	}
	return nil
}
