package models

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	tea "github.com/charmbracelet/bubbletea"
)

// AutoRefresh re-fetches the active tab on an interval. Consecutive background
// failures stretch the interval exponentially up to max; a success resets it.
type AutoRefresh struct {
	base    time.Duration
	backoff *backoff.ExponentialBackOff
	gen     int
	active  bool
	next    time.Duration
}

type refreshTickMsg struct {
	gen int
}

func NewAutoRefresh(base, maxInterval time.Duration) *AutoRefresh {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.MaxInterval = maxInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0

	r := &AutoRefresh{base: base, backoff: b}
	r.reset()
	return r
}

// reset returns to the base interval. The first backoff step equals base, so
// it is consumed here and the first failure already doubles the delay.
func (r *AutoRefresh) reset() {
	r.backoff.Reset()
	r.backoff.NextBackOff()
	r.next = r.base
}

// Start begins a new tick chain, abandoning any earlier one.
func (r *AutoRefresh) Start() tea.Cmd {
	if r.base <= 0 {
		return nil
	}
	r.gen++
	r.active = true
	r.reset()
	return r.schedule(r.base)
}

// Stop ends the current chain; its pending tick is ignored when it fires.
func (r *AutoRefresh) Stop() {
	r.gen++
	r.active = false
}

func (r *AutoRefresh) Active() bool {
	return r.active
}

// Owns reports whether tick belongs to the running chain.
func (r *AutoRefresh) Owns(tick refreshTickMsg) bool {
	return r.active && tick.gen == r.gen
}

// Record adjusts the next interval from a background fetch outcome.
func (r *AutoRefresh) Record(err error) {
	if err == nil {
		r.reset()
		return
	}
	if d := r.backoff.NextBackOff(); d != backoff.Stop {
		r.next = d
	}
}

// Interval is the delay before the next tick.
func (r *AutoRefresh) Interval() time.Duration {
	return r.next
}

// Continue schedules the next tick of the running chain.
func (r *AutoRefresh) Continue() tea.Cmd {
	if !r.active {
		return nil
	}
	return r.schedule(r.next)
}

func (r *AutoRefresh) schedule(d time.Duration) tea.Cmd {
	gen := r.gen
	return tea.Tick(d, func(time.Time) tea.Msg {
		return refreshTickMsg{gen: gen}
	})
}
