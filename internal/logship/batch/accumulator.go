package batch

import (
	"time"

	"k8s.io/utils/clock"

	"github.com/G-Research/logship/internal/logship/model"
)

// Accumulator holds rows waiting to be flushed and decides when they should be.
// A flush is due once maxItems rows are held, or once any rows are held and maxInterval has passed since the
// last flush. It is not safe for concurrent use; the forwarder's worker is its only user.
type Accumulator struct {
	rows        []model.Row
	maxItems    int
	maxInterval time.Duration
	clock       clock.PassiveClock
	lastFlush   time.Time
}

func NewAccumulator(maxItems int, maxInterval time.Duration, clk clock.PassiveClock) *Accumulator {
	return &Accumulator{
		rows:        make([]model.Row, 0, maxItems),
		maxItems:    maxItems,
		maxInterval: maxInterval,
		clock:       clk,
		lastFlush:   clk.Now(),
	}
}

func (a *Accumulator) Add(row model.Row) {
	a.rows = append(a.rows, row)
}

func (a *Accumulator) Len() int {
	return len(a.rows)
}

// Full reports whether the size threshold has been reached
func (a *Accumulator) Full() bool {
	return len(a.rows) >= a.maxItems
}

// ShouldFlush evaluates the size and time thresholds
func (a *Accumulator) ShouldFlush() bool {
	if a.Full() {
		return true
	}
	return len(a.rows) > 0 && a.clock.Since(a.lastFlush) >= a.maxInterval
}

// Take hands over the held rows, leaving the accumulator empty and restarting the flush interval.
func (a *Accumulator) Take() []model.Row {
	rows := a.rows
	a.rows = make([]model.Row, 0, a.maxItems)
	a.lastFlush = a.clock.Now()
	return rows
}
