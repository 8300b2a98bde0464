// Package sinktest provides an in-memory sink whose failures can be scripted, for testing the forwarder.
package sinktest

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/G-Research/logship/internal/logship/model"
	"github.com/G-Research/logship/internal/logship/sink"
)

var (
	ErrDialFailed   = errors.New("fake dial failure")
	ErrInsertFailed = errors.New("fake insert failure")
)

// Dialer records every dial and insert. Its zero value is a healthy sink.
type Dialer struct {
	mu sync.Mutex
	// Number of upcoming Dial calls that will fail
	failDials int
	// Number of upcoming InsertRows calls that will fail
	failInserts int
	// Number of upcoming InsertRows calls that will panic
	panicInserts int
	dials       int
	closes      int
	inserts     [][]model.Row
	failedRows  [][]model.Row
}

func NewDialer() *Dialer {
	return &Dialer{}
}

// FailDials makes the next n calls to Dial fail
func (d *Dialer) FailDials(n int) *Dialer {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failDials = n
	return d
}

// PanicInserts makes the next n calls to InsertRows panic
func (d *Dialer) PanicInserts(n int) *Dialer {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.panicInserts = n
	return d
}

// FailInserts makes the next n calls to InsertRows fail
func (d *Dialer) FailInserts(n int) *Dialer {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failInserts = n
	return d
}

func (d *Dialer) Describe() string {
	return "fake sink"
}

func (d *Dialer) Dial(_ context.Context) (sink.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.failDials > 0 {
		d.failDials--
		return nil, ErrDialFailed
	}
	return &session{dialer: d}, nil
}

// Dials is the number of connection attempts made so far
func (d *Dialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// Closes is the number of sessions closed so far
func (d *Dialer) Closes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closes
}

// Inserts returns a copy of every successful InsertRows call, in order
func (d *Dialer) Inserts() [][]model.Row {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copyBatches(d.inserts)
}

// FailedInserts returns a copy of every InsertRows call that was made to fail, in order
func (d *Dialer) FailedInserts() [][]model.Row {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copyBatches(d.failedRows)
}

// Rows returns every successfully inserted row, in order
func (d *Dialer) Rows() []model.Row {
	var rows []model.Row
	for _, batch := range d.Inserts() {
		rows = append(rows, batch...)
	}
	return rows
}

func copyBatches(batches [][]model.Row) [][]model.Row {
	out := make([][]model.Row, len(batches))
	for i, b := range batches {
		out[i] = append([]model.Row(nil), b...)
	}
	return out
}

type session struct {
	dialer *Dialer
}

func (s *session) InsertRows(_ context.Context, rows []model.Row) error {
	d := s.dialer
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.panicInserts > 0 {
		d.panicInserts--
		panic("fake insert panic")
	}
	if d.failInserts > 0 {
		d.failInserts--
		d.failedRows = append(d.failedRows, append([]model.Row(nil), rows...))
		return ErrInsertFailed
	}
	d.inserts = append(d.inserts, append([]model.Row(nil), rows...))
	return nil
}

func (s *session) Close() error {
	s.dialer.mu.Lock()
	defer s.dialer.mu.Unlock()
	s.dialer.closes++
	return nil
}
