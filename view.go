package main

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/gdamore/tcell/v2"
)

// KeyHold is how long a control stays pressed after its last key event.
// Terminals report presses and repeats but never releases.
const KeyHold = 150 * time.Millisecond

type control uint8

const (
	ctlAccelerate control = iota
	ctlLeft
	ctlRight
	ctlFire
	numControls
)

var (
	styleHUD      = tcell.StyleDefault.Foreground(tcell.ColorWhite).Reverse(true)
	styleAsteroid = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleBullet   = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleOver     = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
)

// View draws the game on a terminal and turns keys into control flags
type View struct {
	screen  tcell.Screen
	game    *Game
	pressed [numControls]time.Time
	redraw  chan time.Duration
	OnQuit  func()
}

// NewView attaches an initialized screen to g
func NewView(screen tcell.Screen, g *Game) *View {
	v := &View{
		screen: screen,
		game:   g,
		redraw: make(chan time.Duration, 1),
	}
	g.AddUpdateListener(v.requestRedraw)
	return v
}

// requestRedraw runs on the simulation goroutine; the draw happens in Run
func (v *View) requestRedraw(sinceTick time.Duration) {
	select {
	case v.redraw <- sinceTick:
	default:
	}
}

// Run handles terminal events and redraws until ctx is done or the player
// quits
func (v *View) Run(ctx context.Context) {
	events := make(chan tcell.Event, 100)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	}()

	// once the simulation stops nobody requests redraws
	idle := time.NewTicker(250 * time.Millisecond)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-idle.C:
			if !v.game.IsRunning() {
				v.Draw(v.game.Frame(), 0)
			}
		case ev := <-events:
			if !v.HandleEvent(ev, time.Now()) {
				if v.OnQuit != nil {
					v.OnQuit()
				}
				return
			}
		case since := <-v.redraw:
			v.game.SetControls(v.Controls(time.Now()))
			v.Draw(v.game.Frame(), since)
		}
	}
}

// HandleEvent records a key press. It returns false when the player asked
// to quit.
func (v *View) HandleEvent(ev tcell.Event, now time.Time) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyUp:
			v.pressed[ctlAccelerate] = now
		case tcell.KeyLeft:
			v.pressed[ctlLeft] = now
		case tcell.KeyRight:
			v.pressed[ctlRight] = now
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q', 'Q':
				return false
			case 'w', 'W':
				v.pressed[ctlAccelerate] = now
			case 'a', 'A':
				v.pressed[ctlLeft] = now
			case 'd', 'D':
				v.pressed[ctlRight] = now
			case ' ':
				v.pressed[ctlFire] = now
			}
		}
	case *tcell.EventResize:
		v.screen.Sync()
	}
	return true
}

// Controls returns the flags still held at now
func (v *View) Controls(now time.Time) Controls {
	held := func(c control) bool {
		t := v.pressed[c]
		return !t.IsZero() && now.Sub(t) < KeyHold
	}
	return Controls{
		Accelerate: held(ctlAccelerate),
		TurnLeft:   held(ctlLeft),
		TurnRight:  held(ctlRight),
		Fire:       held(ctlFire),
	}
}

// Draw renders f, moving every body forward by the fraction of a tick that
// has passed since it was simulated
func (v *View) Draw(f Frame, sinceTick time.Duration) {
	s := v.screen
	s.Clear()
	w, h := s.Size()
	if w <= 0 || h <= 1 {
		s.Show()
		return
	}
	arenaH := h - 1
	frac := Clamp(float64(sinceTick)/float64(TickDuration), 0, 1)
	if !f.Running {
		frac = 0
	}

	cell := func(p, vel Vec2) (int, int) {
		x := wrap(p.X+vel.X*frac, WorldWidth)
		y := wrap(p.Y+vel.Y*frac, WorldHeight)
		return int(x * float64(w) / WorldWidth), int(y * float64(arenaH) / WorldHeight)
	}

	for _, a := range f.Asteroids {
		x, y := cell(a.Pos, a.Vel)
		s.SetContent(x, y, asteroidGlyph(a.Size), nil, styleAsteroid)
	}
	for _, b := range f.Bullets {
		x, y := cell(b.Pos, b.Vel)
		s.SetContent(x, y, '*', nil, styleBullet)
	}
	for _, sh := range f.Ships {
		if sh.Spectator {
			continue
		}
		x, y := cell(sh.Pos, sh.Vel)
		s.SetContent(x, y, shipGlyph(sh.Direction), nil, shipStyle(sh.Color))
	}
	if !f.Ship.Spectator && !f.GameOver {
		x, y := cell(f.Ship.Pos, f.Ship.Vel)
		s.SetContent(x, y, shipGlyph(f.Ship.Direction), nil, shipStyle(f.Ship.Color).Bold(true))
	}

	drawText(s, 0, h-1, w, styleHUD, hudLine(f))
	if f.GameOver {
		msg := "GAME OVER"
		drawText(s, (w-len(msg))/2, arenaH/2, w, styleOver, msg)
	}
	s.Show()
}

func hudLine(f Frame) string {
	line := fmt.Sprintf(" %s  score %d", f.Mode, f.Ship.Score)
	if f.Mode == ModeCoop {
		line += fmt.Sprintf("  team %d", f.Ship.CoopScore)
	}
	if f.Mode == ModeDeathmatch {
		line += fmt.Sprintf("  hp %.0f", f.Ship.Health)
	}
	if f.Ship.Spectator {
		line += "  spectating"
	} else {
		line += fmt.Sprintf("  energy %.0f%%", f.Energy)
	}
	return line
}

func drawText(s tcell.Screen, x, y, maxX int, style tcell.Style, text string) {
	for _, r := range text {
		if x >= maxX {
			return
		}
		if x >= 0 {
			s.SetContent(x, y, r, nil, style)
		}
		x++
	}
}

func asteroidGlyph(size AsteroidSize) rune {
	switch size {
	case AsteroidLarge:
		return '@'
	case AsteroidMedium:
		return 'O'
	}
	return 'o'
}

// shipGlyph picks an arrow for the heading, 0 radians facing up
func shipGlyph(dir float64) rune {
	arrows := [...]rune{'^', '>', 'v', '<'}
	quarter := int(math.Round(wrap(dir, 2*math.Pi)/(math.Pi/2))) % 4
	return arrows[quarter]
}

func shipStyle(c ShipColor) tcell.Style {
	st := tcell.StyleDefault
	switch c {
	case ColorRed:
		return st.Foreground(tcell.ColorRed)
	case ColorGreen:
		return st.Foreground(tcell.ColorGreen)
	case ColorMagenta:
		return st.Foreground(tcell.ColorFuchsia)
	case ColorCyan:
		return st.Foreground(tcell.ColorAqua)
	}
	return st.Foreground(tcell.ColorWhite)
}
