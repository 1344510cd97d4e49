package engine

// RandomSource supplies uniform draws in [0,1). *math/rand/v2.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// Target is a chosen facility together with the playable tile to walk to
type Target struct {
	Facility FacilityID
	Tile     GridPos
}

// TargetOptions filters the candidate set
type TargetOptions struct {
	SkipLastType    bool
	ExcludeFacility FacilityID
}

// DefaultTargetOptions is used on spawn and after a completed play
func DefaultTargetOptions() TargetOptions {
	return TargetOptions{SkipLastType: true, ExcludeFacility: NoFacility}
}

// RerouteOptions is used when the intended facility turned out to be full
func RerouteOptions(full FacilityID) TargetOptions {
	return TargetOptions{SkipLastType: false, ExcludeFacility: full}
}

// TargetSelector scores facilities and draws one by weight
type TargetSelector struct {
	registry *FacilityRegistry
	rnd      RandomSource
}

// NewTargetSelector creates a selector drawing from rnd
func NewTargetSelector(registry *FacilityRegistry, rnd RandomSource) *TargetSelector {
	return &TargetSelector{registry: registry, rnd: rnd}
}

type candidate struct {
	target Target
	weight float64
}

// Score computes the attraction weight of f for a visitor standing at from,
// before jitter. The nearest playable tile is returned alongside.
func Score(f *Facility, preference float64, from GridPos) (float64, GridPos) {
	tile, dist := f.NearestPlayableTile(from)
	distanceCost := 1 + float64(dist)
	crowdCost := 1 + float64(f.CurrentPlayers)/float64(f.Spec.Capacity)*3
	return preference * f.Spec.HappinessGain / (distanceCost * crowdCost), tile
}

// ChooseTarget picks the visitor's next destination starting from (sx,sy).
// It returns false when no facility qualifies.
func (s *TargetSelector) ChooseTarget(v *Visitor, sx, sy int, opts TargetOptions) (Target, bool) {
	from := GridPos{X: sx, Y: sy}
	var (
		candidates []candidate
		total      float64
	)
	for _, f := range s.registry.All() {
		if !f.HasCapacity() {
			continue
		}
		if f.ID == opts.ExcludeFacility {
			continue
		}
		if opts.SkipLastType && v != nil && v.LastType != "" && f.Spec.Type == v.LastType {
			continue
		}
		pref := 1.0
		if v != nil {
			pref = v.Preference(f.Spec.Type)
		}
		base, tile := Score(f, pref, from)
		w := base * (0.5 + s.rnd.Float64())
		if w <= 0 {
			continue
		}
		candidates = append(candidates, candidate{target: Target{Facility: f.ID, Tile: tile}, weight: w})
		total += w
	}
	if len(candidates) == 0 {
		return Target{}, false
	}

	r := s.rnd.Float64() * total
	for _, c := range candidates {
		if r < c.weight {
			return c.target, true
		}
		r -= c.weight
	}
	return candidates[len(candidates)-1].target, true
}
