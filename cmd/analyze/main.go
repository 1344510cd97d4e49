// Command analyze runs a park configuration headlessly and prints a report of
// how the economy and the crowd developed. Attractions can be scheduled with
// repeated --place type:x:y[@seconds] flags.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/parksim/game/engine"
	"github.com/wricardo/parksim/game/service"
)

// Placement is one scheduled attraction purchase
type Placement struct {
	Type engine.FacilityType `json:"type"`
	X    int                 `json:"x"`
	Y    int                 `json:"y"`
	At   float64             `json:"at"`
}

// Options control a headless run
type Options struct {
	ConfigPath     string
	Seconds        float64
	DT             float64
	Seed           uint64
	Placements     []Placement
	SampleInterval float64
}

// Sample is the park state at one point of the timeline
type Sample struct {
	Time           float64 `json:"time"`
	Funds          float64 `json:"funds"`
	Reputation     float64 `json:"reputation"`
	Satisfaction   float64 `json:"satisfaction"`
	ActiveVisitors int     `json:"active_visitors"`
}

// PlacementOutcome records whether a scheduled placement went through
type PlacementOutcome struct {
	Placement
	Success bool   `json:"success"`
	Reason  string `json:"reason"`
}

// Report summarises a finished run
type Report struct {
	Config     string                 `json:"config"`
	Seconds    float64                `json:"seconds"`
	Ticks      int                    `json:"ticks"`
	Placements []PlacementOutcome     `json:"placements"`
	Timeline   []Sample               `json:"timeline"`
	Final      *engine.ParkSnapshot   `json:"final"`
	Facilities []engine.FacilityState `json:"facilities"`
}

// ParsePlacement reads "type:x:y" or "type:x:y@seconds"
func ParsePlacement(raw string) (Placement, error) {
	spec, at := raw, 0.0
	if i := strings.LastIndex(raw, "@"); i >= 0 {
		spec = raw[:i]
		v, err := strconv.ParseFloat(raw[i+1:], 64)
		if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return Placement{}, fmt.Errorf("placement %q: invalid time", raw)
		}
		at = v
	}

	parts := strings.Split(spec, ":")
	if len(parts) != 3 {
		return Placement{}, fmt.Errorf("placement %q: expected type:x:y", raw)
	}
	ft, err := engine.ParseFacilityType(parts[0])
	if err != nil {
		ft = engine.FacilityType(strings.ToLower(strings.TrimSpace(parts[0])))
	}
	x, errX := strconv.Atoi(strings.TrimSpace(parts[1]))
	y, errY := strconv.Atoi(strings.TrimSpace(parts[2]))
	if errX != nil || errY != nil {
		return Placement{}, fmt.Errorf("placement %q: coordinates must be integers", raw)
	}
	return Placement{Type: ft, X: x, Y: y, At: at}, nil
}

// Analyze simulates the configured park and collects a report
func Analyze(opts Options) (*Report, error) {
	if opts.Seconds <= 0 {
		return nil, errors.New("seconds must be positive")
	}
	if opts.DT <= 0 || math.IsNaN(opts.DT) {
		return nil, errors.New("dt must be positive")
	}
	dt := service.ClampDelta(opts.DT)
	if dt != opts.DT {
		log.Warn("dt clamped", "requested", opts.DT, "used", dt)
	}
	if opts.SampleInterval <= 0 {
		opts.SampleInterval = 10
	}

	cfg, err := engine.LoadParkConfig(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", opts.ConfigPath, err)
	}
	if opts.Seed != 0 {
		cfg.Seed = opts.Seed
	}

	park, err := engine.NewPark(cfg, engine.WithLogger(log.Default().WithPrefix("analyze")))
	if err != nil {
		return nil, fmt.Errorf("failed to create park: %w", err)
	}

	pending := append([]Placement(nil), opts.Placements...)
	sort.SliceStable(pending, func(i, j int) bool { return pending[i].At < pending[j].At })

	report := &Report{Config: cfg.Name, Seconds: opts.Seconds}
	place := func(p Placement) {
		outcome := PlacementOutcome{Placement: p}
		if _, known := park.Catalog()[p.Type]; !known {
			outcome.Reason = engine.PlacementUnknownType.String()
		} else {
			check := park.CheckPlacement(p.Type, p.X, p.Y)
			outcome.Reason = check.String()
			outcome.Success = check == engine.PlacementOK && park.PlaceFacility(p.Type, p.X, p.Y)
		}
		report.Placements = append(report.Placements, outcome)
	}
	sample := func() {
		report.Timeline = append(report.Timeline, Sample{
			Time:           park.Elapsed(),
			Funds:          park.Funds(),
			Reputation:     park.Reputation(),
			Satisfaction:   park.Satisfaction(),
			ActiveVisitors: park.ActiveVisitors(),
		})
	}

	steps := int(math.Ceil(opts.Seconds/dt - 1e-9))
	nextSample := 0.0
	for i := 0; i <= steps; i++ {
		for len(pending) > 0 && pending[0].At <= park.Elapsed()+1e-9 {
			place(pending[0])
			pending = pending[1:]
		}
		if park.Elapsed()+1e-9 >= nextSample {
			sample()
			nextSample += opts.SampleInterval
		}
		if i == steps {
			break
		}
		park.Update(dt)
		report.Ticks++
	}
	for _, p := range pending {
		report.Placements = append(report.Placements, PlacementOutcome{Placement: p, Reason: "scheduled after the run ended"})
	}

	report.Final = park.Snapshot()
	report.Facilities = park.FacilityStates()
	return report, nil
}

// WriteText prints the report for humans
func WriteText(w io.Writer, r *Report) {
	f := r.Final
	fmt.Fprintf(w, "=== %s: %.1f simulated seconds (%d ticks) ===\n", r.Config, r.Seconds, r.Ticks)

	if len(r.Placements) > 0 {
		fmt.Fprintf(w, "\nPlacements:\n")
		for _, p := range r.Placements {
			mark := "ok"
			if !p.Success {
				mark = "FAILED: " + p.Reason
			}
			fmt.Fprintf(w, "  t=%5.1f %-12s (%d,%d) %s\n", p.At, p.Type, p.X, p.Y, mark)
		}
	}

	fmt.Fprintf(w, "\nTimeline:\n")
	fmt.Fprintf(w, "  %7s %10s %10s %12s %8s\n", "time", "funds", "reputation", "satisfaction", "inside")
	for _, s := range r.Timeline {
		fmt.Fprintf(w, "  %7.1f %10.0f %10.2f %12.1f %8d\n", s.Time, s.Funds, s.Reputation, s.Satisfaction, s.ActiveVisitors)
	}

	fmt.Fprintf(w, "\nFinal state:\n")
	fmt.Fprintf(w, "  Funds:          %.0f\n", f.Funds)
	fmt.Fprintf(w, "  Reputation:     %.2f\n", f.Reputation)
	fmt.Fprintf(w, "  Satisfaction:   %.1f\n", f.Satisfaction)
	fmt.Fprintf(w, "  Spawn interval: %.2fs\n", f.SpawnInterval)
	fmt.Fprintf(w, "  Visitors:       %d spawned, %d inside, %d departed (%d delighted, %d unhappy)\n",
		f.Stats.Spawned, f.ActiveVisitors, f.Stats.Departed, f.Stats.Delighted, f.Stats.Unhappy)
	fmt.Fprintf(w, "  Plays:          %d (reroutes %d, failed spawns %d)\n", f.Stats.Plays, f.Stats.Reroutes, f.Stats.FailedSpawns)

	if len(r.Facilities) > 0 {
		fmt.Fprintf(w, "\nAttractions:\n")
		for _, fs := range r.Facilities {
			fmt.Fprintf(w, "  #%d %-12s at (%d,%d) %d/%d playing\n", fs.ID, fs.Type, fs.X, fs.Y, fs.CurrentPlayers, fs.Capacity)
		}
	}

	fmt.Fprintf(w, "\nMap:\n")
	for _, row := range f.Grid {
		fmt.Fprintf(w, "  %s\n", row)
	}
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "simulate a park configuration headlessly and report the outcome",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "configs/classic.json", Usage: "park config file (.json or .yaml)"},
			&cli.FloatFlag{Name: "seconds", Aliases: []string{"s"}, Value: 120, Usage: "simulated seconds to run"},
			&cli.FloatFlag{Name: "dt", Value: 0.1, Usage: "seconds per tick (at most 0.25)"},
			&cli.Uint64Flag{Name: "seed", Usage: "random seed (0 keeps the config's seed)"},
			&cli.StringSliceFlag{Name: "place", Aliases: []string{"p"}, Usage: "attraction to buy, as type:x:y or type:x:y@seconds"},
			&cli.FloatFlag{Name: "sample", Value: 10, Usage: "seconds between timeline samples"},
			&cli.BoolFlag{Name: "json", Usage: "print the report as JSON"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts := Options{
				ConfigPath:     cmd.String("config"),
				Seconds:        cmd.Float("seconds"),
				DT:             cmd.Float("dt"),
				Seed:           cmd.Uint64("seed"),
				SampleInterval: cmd.Float("sample"),
			}
			for _, raw := range cmd.StringSlice("place") {
				p, err := ParsePlacement(raw)
				if err != nil {
					return err
				}
				opts.Placements = append(opts.Placements, p)
			}

			report, err := Analyze(opts)
			if err != nil {
				return err
			}
			if cmd.Bool("json") {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			WriteText(out, report)
			return nil
		},
	}
}

func main() {
	if err := newCommand(os.Stdout).Run(context.Background(), os.Args); err != nil {
		log.Fatal("analyze failed", "err", err)
	}
}
