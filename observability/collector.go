package observability

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wricardo/parksim/game/engine"
	"github.com/wricardo/parksim/game/service"
)

var (
	_ service.SnapshotSubscriber = (*ParkCollector)(nil)
	_ service.ParkObserver       = (*ParkCollector)(nil)
)

// ParkCollector exports per-session park metrics. Gauges follow the latest
// published snapshot; counters accumulate across the process lifetime.
type ParkCollector struct {
	gatherer prometheus.Gatherer

	Funds          *prometheus.GaugeVec
	Reputation     *prometheus.GaugeVec
	Satisfaction   *prometheus.GaugeVec
	ActiveVisitors *prometheus.GaugeVec
	TotalVisitors  *prometheus.GaugeVec
	SpawnInterval  *prometheus.GaugeVec
	Facilities     *prometheus.GaugeVec

	Ticks      *prometheus.CounterVec
	Placements *prometheus.CounterVec
}

// NewParkCollector registers park metrics against reg, defaulting to the
// global Prometheus registry when nil.
func NewParkCollector(reg prometheus.Registerer) (*ParkCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &ParkCollector{gatherer: gatherer}
	gauges := []struct {
		target **prometheus.GaugeVec
		name   string
		help   string
	}{
		{&c.Funds, "park_funds", "Current funds of the park."},
		{&c.Reputation, "park_reputation", "Current park reputation."},
		{&c.Satisfaction, "park_satisfaction", "Current aggregate visitor satisfaction (0-100)."},
		{&c.ActiveVisitors, "park_active_visitors", "Visitors currently inside the park."},
		{&c.TotalVisitors, "park_visitors_spawned", "Visitors spawned since the park was created."},
		{&c.SpawnInterval, "park_spawn_interval_seconds", "Current interval between visitor arrivals."},
		{&c.Facilities, "park_facilities", "Attractions placed in the park."},
	}
	for _, g := range gauges {
		vec, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: g.name,
			Help: g.help,
		}, []string{"session"}), g.name)
		if err != nil {
			return nil, err
		}
		*g.target = vec
	}

	ticks, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "park_ticks_total",
		Help: "Simulation ticks published per session.",
	}, []string{"session"}), "park_ticks_total")
	if err != nil {
		return nil, err
	}
	c.Ticks = ticks

	placements, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "park_placements_total",
		Help: "Placement attempts, labeled by attraction type and result.",
	}, []string{"type", "success"}), "park_placements_total")
	if err != nil {
		return nil, err
	}
	c.Placements = placements

	return c, nil
}

// PublishSnapshot updates the session gauges from a fresh snapshot
func (c *ParkCollector) PublishSnapshot(sessionID string, snap *engine.ParkSnapshot) {
	if c == nil || snap == nil {
		return
	}
	c.Funds.WithLabelValues(sessionID).Set(snap.Funds)
	c.Reputation.WithLabelValues(sessionID).Set(snap.Reputation)
	c.Satisfaction.WithLabelValues(sessionID).Set(snap.Satisfaction)
	c.ActiveVisitors.WithLabelValues(sessionID).Set(float64(snap.ActiveVisitors))
	c.TotalVisitors.WithLabelValues(sessionID).Set(float64(snap.VisitorCount))
	c.SpawnInterval.WithLabelValues(sessionID).Set(snap.SpawnInterval)
	c.Facilities.WithLabelValues(sessionID).Set(float64(len(snap.Facilities)))
	c.Ticks.WithLabelValues(sessionID).Inc()
}

// RecordPlacement counts a committed placement attempt
func (c *ParkCollector) RecordPlacement(sessionID string, result *service.PlacementResult) {
	if c == nil || result == nil {
		return
	}
	c.Placements.WithLabelValues(string(result.Type), strconv.FormatBool(result.Success)).Inc()
}

// ForgetSession drops every series labeled with the session
func (c *ParkCollector) ForgetSession(sessionID string) {
	if c == nil {
		return
	}
	for _, vec := range []*prometheus.GaugeVec{
		c.Funds, c.Reputation, c.Satisfaction, c.ActiveVisitors,
		c.TotalVisitors, c.SpawnInterval, c.Facilities,
	} {
		vec.DeleteLabelValues(sessionID)
	}
	c.Ticks.DeleteLabelValues(sessionID)
}

// Handler exposes a ready-to-use /metrics handler.
func (c *ParkCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
