// Package sink owns the connection to the remote table that log rows are inserted into.
//
// A Dialer knows how to reach one kind of store and produces Sessions. The Connector holds at most one Session
// at a time on behalf of the forwarder's worker: it is created lazily, thrown away when a write fails and
// recreated on the next attempt. Connector is not safe for concurrent use.
package sink

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/G-Research/logship/internal/common/logctx"
	"github.com/G-Research/logship/internal/logship/metrics"
	"github.com/G-Research/logship/internal/logship/model"
)

// ErrNotConnected is returned by ExecuteBatch when there is no live session
var ErrNotConnected = errors.New("no live sink connection")

// ErrConnection is reported when a session to the sink cannot be established
type ErrConnection struct {
	// Description of the sink, as given by Dialer.Describe
	Sink string
	Err  error
}

func (err *ErrConnection) Error() string {
	return fmt.Sprintf("could not connect to %s: %s", err.Sink, err.Err)
}

func (err *ErrConnection) Cause() error {
	return err.Err
}

func (err *ErrConnection) Unwrap() error {
	return err.Err
}

// Dialer establishes sessions with one sink
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
	// Describe names the sink for log messages. Must not include secrets.
	Describe() string
}

// Session is a live connection able to insert rows into the sink table
type Session interface {
	// InsertRows writes all rows using a single multi-row statement
	InsertRows(ctx context.Context, rows []model.Row) error
	Close() error
}

type Connector struct {
	dialer  Dialer
	session Session
	metrics *metrics.Metrics
}

func NewConnector(dialer Dialer, m *metrics.Metrics) *Connector {
	return &Connector{
		dialer:  dialer,
		metrics: m,
	}
}

// Connect makes a fresh attempt to establish a session, replacing any existing one. Failures are logged and
// leave the connector without a session; they are never returned.
func (c *Connector) Connect(ctx *logctx.Context) bool {
	if c.session != nil {
		c.closeSession(ctx)
	}
	session, err := c.dialer.Dial(ctx)
	if err != nil {
		ctx.Log.WithError(&ErrConnection{Sink: c.dialer.Describe(), Err: err}).Error("Failed to connect to sink")
		c.metrics.RecordConnectError()
		c.metrics.SetConnected(false)
		return false
	}
	c.session = session
	c.metrics.SetConnected(true)
	ctx.Log.Infof("Connected to %s", c.dialer.Describe())
	return true
}

// Connected reports whether the connector currently holds a session
func (c *Connector) Connected() bool {
	return c.session != nil
}

// ExecuteBatch inserts rows through the current session. Errors are returned to the caller untouched; the
// connector keeps the session until Invalidate is called.
func (c *Connector) ExecuteBatch(ctx context.Context, rows []model.Row) error {
	if c.session == nil {
		return ErrNotConnected
	}
	if len(rows) == 0 {
		return nil
	}
	if err := c.session.InsertRows(ctx, rows); err != nil {
		return errors.WithMessagef(err, "error inserting %d rows", len(rows))
	}
	return nil
}

// Invalidate discards the current session so that the next flush reconnects from scratch
func (c *Connector) Invalidate(ctx *logctx.Context) {
	if c.session != nil {
		c.closeSession(ctx)
	}
}

// Close releases the session, if any. Errors are logged only.
func (c *Connector) Close(ctx *logctx.Context) {
	if c.session == nil {
		return
	}
	c.closeSession(ctx)
	ctx.Log.Infof("Closed connection to %s", c.dialer.Describe())
}

func (c *Connector) closeSession(ctx *logctx.Context) {
	if err := c.session.Close(); err != nil {
		ctx.Log.WithError(err).Warnf("Failed to close connection to %s cleanly", c.dialer.Describe())
	}
	c.session = nil
	c.metrics.SetConnected(false)
}
