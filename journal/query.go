package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetCommand returns a single command record by ID.
func (j *SQLite) GetCommand(id string) (CommandRecord, error) {
	row := j.db.QueryRow(`
		SELECT id, time, name, payload, slot, attempts, elapsed_ms, result, error
		FROM commands
		WHERE id = ?`, id)

	rec, err := scanCommand(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CommandRecord{}, fmt.Errorf("command %q not found", id)
		}
		return CommandRecord{}, err
	}
	return rec, nil
}

// ListCommandsBetween returns commands sent within [start, end).
func (j *SQLite) ListCommandsBetween(start, end time.Time) ([]CommandRecord, error) {
	rows, err := j.db.Query(`
		SELECT id, time, name, payload, slot, attempts, elapsed_ms, result, error
		FROM commands
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CommandRecord
	for rows.Next() {
		rec, err := scanCommand(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCommand(s scanner) (CommandRecord, error) {
	var (
		rec       CommandRecord
		elapsedMS float64
	)
	err := s.Scan(
		&rec.ID,
		&rec.Time,
		&rec.Name,
		&rec.Payload,
		&rec.Slot,
		&rec.Attempts,
		&elapsedMS,
		&rec.Result,
		&rec.Error,
	)
	rec.Elapsed = time.Duration(elapsedMS * float64(time.Millisecond))
	return rec, err
}

// ListMessagesBetween returns messages timestamped within [start, end),
// oldest first.
func (j *SQLite) ListMessagesBetween(start, end time.Time) ([]MessageRecord, error) {
	rows, err := j.db.Query(`
		SELECT millis, time, type, message, error_type, description
		FROM messages
		WHERE millis >= ? AND millis < ?
		ORDER BY millis ASC`, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MessageRecord
	for rows.Next() {
		var rec MessageRecord
		if err := rows.Scan(
			&rec.Millis,
			&rec.Time,
			&rec.Type,
			&rec.Message,
			&rec.ErrorType,
			&rec.Description,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquityBetween returns equity snapshots taken within [start, end).
func (j *SQLite) ListEquityBetween(start, end time.Time) ([]EquitySnapshot, error) {
	rows, err := j.db.Query(`
		SELECT time, balance, equity, free_margin, open_orders
		FROM equity
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var rec EquitySnapshot
		if err := rows.Scan(
			&rec.Time,
			&rec.Balance,
			&rec.Equity,
			&rec.FreeMargin,
			&rec.OpenOrders,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
