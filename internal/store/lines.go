package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/QuanLionSoft/KonyaBusProject/internal/ingest"
)

// ErrNotFound is returned by single-entity lookups when no row matches.
var ErrNotFound = errors.New("store: not found")

// Line is one bus line. MainNo and SubNo carry the (main, sub) identity
// a "56-1" style id splits into; a plain line has sub-number "0".
type Line struct {
	LineID string `json:"line_id"`
	MainNo string `json:"main_no"`
	SubNo  string `json:"sub_no"`
	Name   string `json:"name"`
	Region string `json:"region"`
}

// Stop is one bus stop; coordinates are nil when unknown or unrepairable.
type Stop struct {
	StopID    string   `json:"stop_id"`
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// RoutePoint is one vertex of a line's route polyline.
type RoutePoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// UpsertLine inserts or updates a line record. The (main, sub) identity
// is derived from the id, not taken from the caller.
func (s *Store) UpsertLine(ctx context.Context, l Line) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	main, sub := ingest.SplitLineID(l.LineID)
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO lines (line_id, main_no, sub_no, name, region, updated_at)
		VALUES (?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(line_id) DO UPDATE SET
			name = excluded.name,
			region = excluded.region,
			updated_at = excluded.updated_at`,
		l.LineID, main, sub, l.Name, l.Region)
	if err != nil {
		return fmt.Errorf("failed to upsert line %s: %w", l.LineID, err)
	}
	return nil
}

// UpsertStop inserts or updates a stop record.
func (s *Store) UpsertStop(ctx context.Context, st Stop) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO stops (stop_id, name, latitude, longitude, updated_at)
		VALUES (?, ?, ?, ?, datetime('now'))
		ON CONFLICT(stop_id) DO UPDATE SET
			name = excluded.name,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			updated_at = excluded.updated_at`,
		st.StopID, st.Name, st.Latitude, st.Longitude)
	if err != nil {
		return fmt.Errorf("failed to upsert stop %s: %w", st.StopID, err)
	}
	return nil
}

// EnsureStop creates a placeholder stop row when only the identifier is
// known, without clobbering an existing record's name or coordinates.
func (s *Store) EnsureStop(ctx context.Context, stopID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO stops (stop_id) VALUES (?)
		ON CONFLICT(stop_id) DO NOTHING`, stopID)
	if err != nil {
		return fmt.Errorf("failed to ensure stop %s: %w", stopID, err)
	}
	return nil
}

// SetLineStops replaces the stop sequence of one line direction.
func (s *Store) SetLineStops(ctx context.Context, lineID string, direction int, stopIDs []string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM line_stops WHERE line_id = ? AND direction = ?",
		lineID, direction); err != nil {
		return fmt.Errorf("failed to clear line stops: %w", err)
	}
	for i, stopID := range stopIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO line_stops (line_id, direction, seq, stop_id)
			VALUES (?, ?, ?, ?)`,
			lineID, direction, i, stopID); err != nil {
			return fmt.Errorf("failed to insert line stop: %w", err)
		}
	}
	return tx.Commit()
}

// SetRoutePoints replaces the route polyline of one line direction.
func (s *Store) SetRoutePoints(ctx context.Context, lineID string, direction int, points []RoutePoint) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM route_points WHERE line_id = ? AND direction = ?",
		lineID, direction); err != nil {
		return fmt.Errorf("failed to clear route points: %w", err)
	}
	for i, p := range points {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO route_points (line_id, direction, seq, latitude, longitude)
			VALUES (?, ?, ?, ?, ?)`,
			lineID, direction, i, p.Latitude, p.Longitude); err != nil {
			return fmt.Errorf("failed to insert route point: %w", err)
		}
	}
	return tx.Commit()
}

// ListLines returns every known line ordered by identifier.
func (s *Store) ListLines(ctx context.Context) ([]Line, error) {
	rows, err := s.conn.QueryContext(ctx,
		"SELECT line_id, main_no, sub_no, name, region FROM lines ORDER BY line_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query lines: %w", err)
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.LineID, &l.MainNo, &l.SubNo, &l.Name, &l.Region); err != nil {
			return nil, fmt.Errorf("failed to scan line row: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// GetLine returns one line or ErrNotFound.
func (s *Store) GetLine(ctx context.Context, lineID string) (*Line, error) {
	var l Line
	err := s.conn.QueryRowContext(ctx,
		"SELECT line_id, main_no, sub_no, name, region FROM lines WHERE line_id = ?", lineID).
		Scan(&l.LineID, &l.MainNo, &l.SubNo, &l.Name, &l.Region)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query line: %w", err)
	}
	return &l, nil
}

// StopsForLine returns the ordered stop sequence of one line direction.
func (s *Store) StopsForLine(ctx context.Context, lineID string, direction int) ([]Stop, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT st.stop_id, st.name, st.latitude, st.longitude
		FROM line_stops ls
		JOIN stops st ON st.stop_id = ls.stop_id
		WHERE ls.line_id = ? AND ls.direction = ?
		ORDER BY ls.seq`, lineID, direction)
	if err != nil {
		return nil, fmt.Errorf("failed to query line stops: %w", err)
	}
	defer rows.Close()

	var stops []Stop
	for rows.Next() {
		var st Stop
		if err := rows.Scan(&st.StopID, &st.Name, &st.Latitude, &st.Longitude); err != nil {
			return nil, fmt.Errorf("failed to scan stop row: %w", err)
		}
		stops = append(stops, st)
	}
	return stops, rows.Err()
}

// RouteForLine returns the ordered route polyline of one line direction.
func (s *Store) RouteForLine(ctx context.Context, lineID string, direction int) ([]RoutePoint, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT latitude, longitude FROM route_points
		WHERE line_id = ? AND direction = ?
		ORDER BY seq`, lineID, direction)
	if err != nil {
		return nil, fmt.Errorf("failed to query route points: %w", err)
	}
	defer rows.Close()

	var points []RoutePoint
	for rows.Next() {
		var p RoutePoint
		if err := rows.Scan(&p.Latitude, &p.Longitude); err != nil {
			return nil, fmt.Errorf("failed to scan route point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
