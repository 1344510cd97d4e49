package service

import (
	"context"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"github.com/wricardo/parksim/game/engine"
)

// MaxFrameDelta caps a single simulation step after host stalls
const MaxFrameDelta = 0.25

// ClampDelta sanitizes a frame duration into [0, MaxFrameDelta]
func ClampDelta(dt float64) float64 {
	if math.IsNaN(dt) || dt < 0 {
		return 0
	}
	if dt > MaxFrameDelta {
		return MaxFrameDelta
	}
	return dt
}

// SnapshotSubscriber receives the state of each park after every tick
type SnapshotSubscriber interface {
	PublishSnapshot(sessionID string, snapshot *engine.ParkSnapshot)
}

// ParkObserver is told about placement attempts and removed sessions
type ParkObserver interface {
	RecordPlacement(sessionID string, result *PlacementResult)
	ForgetSession(sessionID string)
}

// Ticker drives every unpaused park at a fixed wall-clock rate
type Ticker struct {
	service     ParkService
	interval    time.Duration
	subscribers []SnapshotSubscriber
}

// NewTicker creates a ticker firing every interval
func NewTicker(svc ParkService, interval time.Duration, subscribers ...SnapshotSubscriber) *Ticker {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Ticker{
		service:     svc,
		interval:    interval,
		subscribers: subscribers,
	}
}

// Step advances all parks by the measured elapsed time and publishes the results
func (t *Ticker) Step(elapsed time.Duration) int {
	snapshots := t.service.TickAll(ClampDelta(elapsed.Seconds()))
	for id, snap := range snapshots {
		for _, sub := range t.subscribers {
			sub.PublishSnapshot(id, snap)
		}
	}
	return len(snapshots)
}

// Run ticks until ctx is cancelled
func (t *Ticker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	last := time.Now()
	log.Info("simulation ticker started", "interval", t.interval)
	for {
		select {
		case <-ctx.Done():
			log.Info("simulation ticker stopped")
			return
		case now := <-ticker.C:
			t.Step(now.Sub(last))
			last = now
		}
	}
}
