package terminal

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"
	"github.com/wricardo/parksim/game/engine"
	"github.com/wricardo/parksim/game/service"
)

var _ service.SnapshotSubscriber = (*Viewer)(nil)

// Viewer draws one park session to a terminal and forwards keyboard
// commands to the park service.
type Viewer struct {
	screen    tcell.Screen
	service   service.ParkService
	sessionID string

	mu       sync.Mutex
	snapshot *engine.ParkSnapshot
	types    []engine.FacilityType
	selected int
	cursor   engine.GridPos
	paused   bool
	message  string
}

// NewViewer prepares a viewer for sessionID. The screen must already be initialised.
func NewViewer(ctx context.Context, screen tcell.Screen, svc service.ParkService, sessionID string) (*Viewer, error) {
	snap, err := svc.GetParkState(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	info, err := svc.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	v := &Viewer{
		screen:    screen,
		service:   svc,
		sessionID: sessionID,
		snapshot:  snap,
		types:     engine.CatalogTypes(info.Config.Catalog()),
		cursor:    engine.GridPos{X: snap.Width / 2, Y: snap.Height / 2},
		paused:    info.Paused,
		message:   "arrows move, 1-9 select, enter place, space pause, q quit",
	}
	return v, nil
}

// PublishSnapshot stores the newest state and wakes the event loop
func (v *Viewer) PublishSnapshot(sessionID string, snap *engine.ParkSnapshot) {
	if sessionID != v.sessionID || snap == nil {
		return
	}
	v.mu.Lock()
	v.snapshot = snap
	v.mu.Unlock()
	v.screen.PostEvent(tcell.NewEventInterrupt(nil))
}

// Selected returns the attraction type placed by Enter
func (v *Viewer) Selected() engine.FacilityType {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selectedLocked()
}

func (v *Viewer) selectedLocked() engine.FacilityType {
	if len(v.types) == 0 {
		return ""
	}
	return v.types[v.selected]
}

// Cursor returns the highlighted cell
func (v *Viewer) Cursor() engine.GridPos {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cursor
}

// Message returns the status line shown under the status bar
func (v *Viewer) Message() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.message
}

// HandleKey applies one key press. It returns false when the viewer should exit.
func (v *Viewer) HandleKey(ctx context.Context, ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyUp, tcell.KeyDown, tcell.KeyLeft, tcell.KeyRight:
		v.mu.Lock()
		v.cursor = MoveCursor(v.cursor, ev.Key(), v.snapshot.Width, v.snapshot.Height)
		v.mu.Unlock()
	case tcell.KeyEnter:
		v.place(ctx)
	case tcell.KeyRune:
		switch r := ev.Rune(); {
		case r == 'q' || r == 'Q':
			return false
		case r == ' ':
			v.togglePause(ctx)
		case r >= '1' && r <= '9':
			v.selectIndex(int(r - '1'))
		}
	}
	return true
}

func (v *Viewer) selectIndex(i int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if i < 0 || i >= len(v.types) {
		v.message = fmt.Sprintf("no attraction bound to key %d", i+1)
		return
	}
	v.selected = i
	v.message = fmt.Sprintf("selected %s", v.types[i])
}

func (v *Viewer) place(ctx context.Context) {
	v.mu.Lock()
	t, pos := v.selectedLocked(), v.cursor
	v.mu.Unlock()

	result, err := v.service.PlaceAttraction(ctx, v.sessionID, string(t), pos.X, pos.Y)
	var msg string
	switch {
	case err != nil:
		msg = err.Error()
	case result.Success:
		msg = fmt.Sprintf("placed %s at (%d,%d)", t, pos.X, pos.Y)
	default:
		msg = fmt.Sprintf("cannot place %s at (%d,%d): %s", t, pos.X, pos.Y, result.Reason)
	}
	snap, stateErr := v.service.GetParkState(ctx, v.sessionID)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.message = msg
	if stateErr == nil {
		v.snapshot = snap
	}
}

func (v *Viewer) togglePause(ctx context.Context) {
	v.mu.Lock()
	paused := !v.paused
	v.mu.Unlock()

	if err := v.service.SetPaused(ctx, v.sessionID, paused); err != nil {
		log.Error("pause failed", "session", v.sessionID, "err", err)
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.paused = paused
	if paused {
		v.message = "paused"
	} else {
		v.message = "running"
	}
}

// MoveCursor steps pos one cell in the direction of key, staying inside the grid
func MoveCursor(pos engine.GridPos, key tcell.Key, width, height int) engine.GridPos {
	switch key {
	case tcell.KeyUp:
		pos.Y--
	case tcell.KeyDown:
		pos.Y++
	case tcell.KeyLeft:
		pos.X--
	case tcell.KeyRight:
		pos.X++
	}
	pos.X = clampInt(pos.X, 0, width-1)
	pos.Y = clampInt(pos.Y, 0, height-1)
	return pos
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// StatusLine summarises the economy line drawn under the grid
func StatusLine(snap *engine.ParkSnapshot, selected engine.FacilityType, paused bool) string {
	state := "running"
	if paused {
		state = "paused"
	}
	return fmt.Sprintf("%s | t=%.1fs funds=%.0f rep=%.1f sat=%.0f visitors=%d/%d | %s | %s",
		snap.Name, snap.Elapsed, snap.Funds, snap.Reputation, snap.Satisfaction,
		snap.ActiveVisitors, snap.VisitorCount, selected, state)
}

// GlyphStyle picks the colour for a rendered grid glyph
func GlyphStyle(r rune) tcell.Style {
	style := tcell.StyleDefault
	switch r {
	case 'E':
		return style.Foreground(tcell.ColorGreen).Bold(true)
	case 'X':
		return style.Foreground(tcell.ColorRed).Bold(true)
	case 'F':
		return style.Foreground(tcell.ColorYellow)
	case 'C':
		return style.Foreground(tcell.ColorFuchsia)
	case 'W':
		return style.Foreground(tcell.ColorAqua)
	case 'o':
		return style.Foreground(tcell.ColorWhite).Bold(true)
	}
	return style.Foreground(tcell.ColorGray)
}

// Draw renders the latest snapshot, the cursor and the status lines
func (v *Viewer) Draw() {
	v.mu.Lock()
	snap, cursor, paused, msg := v.snapshot, v.cursor, v.paused, v.message
	selected := v.selectedLocked()
	v.mu.Unlock()

	v.screen.Clear()
	for y, row := range snap.Grid {
		for x, r := range row {
			style := GlyphStyle(r)
			if x == cursor.X && y == cursor.Y {
				style = style.Reverse(true)
			}
			v.screen.SetContent(x, y, r, nil, style)
		}
	}
	drawText(v.screen, 0, snap.Height+1, StatusLine(snap, selected, paused), tcell.StyleDefault)
	drawText(v.screen, 0, snap.Height+2, msg, tcell.StyleDefault.Foreground(tcell.ColorSilver))
	v.screen.Show()
}

func drawText(s tcell.Screen, x, y int, text string, style tcell.Style) {
	for i, r := range []rune(text) {
		s.SetContent(x+i, y, r, nil, style)
	}
}

// Run processes terminal events until q, Escape, or ctx is cancelled
func (v *Viewer) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		v.screen.PostEvent(tcell.NewEventInterrupt(ctx.Err()))
	}()

	v.Draw()
	for {
		ev := v.screen.PollEvent()
		if ev == nil || ctx.Err() != nil {
			return nil
		}
		switch ev := ev.(type) {
		case *tcell.EventKey:
			if !v.HandleKey(ctx, ev) {
				return nil
			}
		case *tcell.EventResize:
			v.screen.Sync()
		}
		v.Draw()
	}
}
