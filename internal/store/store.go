// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package store keeps a SQLite log of published sensor events.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/relabs-tech/sensor_events/internal/event"
)

//go:embed schema.sql
var schemaSQL string

// Record is one logged event. Values holds only the slots the sensor uses.
type Record struct {
	Seq       int64
	Session   string
	Sensor    event.SensorID
	Kind      event.Kind
	Timestamp int64
	What      event.MetaWhat
	Values    []float32
}

// Store is the event log. Uses WAL mode so the web server can read while the
// producer writes.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite has a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append logs ev, keeping the first width payload slots.
func (s *Store) Append(ctx context.Context, session string, ev event.Event, width int) error {
	width = min(max(width, 0), event.PayloadSize)
	var values []float32
	if ev.Kind == event.KindData {
		values = ev.Data[:width]
	}
	vals, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshal values: %w", err)
	}

	sensor := ev.Sensor
	if ev.Kind == event.KindMeta {
		sensor = ev.Meta.Sensor
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events (session, sensor, kind, timestamp, meta_what, vals) VALUES (?, ?, ?, ?, ?, ?)`,
		session, int32(sensor), int(ev.Kind), ev.Timestamp, int(ev.Meta.What), string(vals))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	return s.query(ctx,
		`SELECT seq, session, sensor, kind, timestamp, meta_what, vals FROM events ORDER BY seq DESC LIMIT ?`,
		limit)
}

// RecentForSensor returns up to limit events of one sensor, newest first.
func (s *Store) RecentForSensor(ctx context.Context, sensor event.SensorID, limit int) ([]Record, error) {
	return s.query(ctx,
		`SELECT seq, session, sensor, kind, timestamp, meta_what, vals FROM events WHERE sensor = ? ORDER BY seq DESC LIMIT ?`,
		int32(sensor), limit)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r      Record
			sensor int32
			kind   int
			what   int
			vals   string
		)
		if err := rows.Scan(&r.Seq, &r.Session, &sensor, &kind, &r.Timestamp, &what, &vals); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		r.Sensor = event.SensorID(sensor)
		r.Kind = event.Kind(kind)
		r.What = event.MetaWhat(what)
		if err := json.Unmarshal([]byte(vals), &r.Values); err != nil {
			return nil, fmt.Errorf("event %d: bad values: %w", r.Seq, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
