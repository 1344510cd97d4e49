package engine

// Visual is a render-side handle owned by a rendering collaborator.
type Visual interface {
	MoveTo(pos WorldPos)
	Remove()
}

// VisualFactory produces visuals for facilities on placement and visitors on spawn.
type VisualFactory interface {
	FacilityVisual(t FacilityType, id FacilityID, center WorldPos) Visual
	VisitorVisual(id int, pos WorldPos) Visual
}

// NopVisuals is the headless factory used when no renderer is attached
type NopVisuals struct{}

type nopVisual struct{}

func (nopVisual) MoveTo(WorldPos) {}
func (nopVisual) Remove()         {}

func (NopVisuals) FacilityVisual(FacilityType, FacilityID, WorldPos) Visual { return nopVisual{} }
func (NopVisuals) VisitorVisual(int, WorldPos) Visual                    { return nopVisual{} }
