package main

import (
	"bytes"
	"image/color"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/wricardo/mcp-training/roaddodge/game/engine"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	backgroundColor = color.RGBA{0x3a, 0x3d, 0x45, 0xff}
	hudColor        = color.RGBA{0xf0, 0xf0, 0xf0, 0xff}
	gameOverColor   = color.RGBA{0xff, 0xe0, 0x40, 0xff}
)

// shape is how a preset is drawn
type shape int

const (
	shapeCar shape = iota
	shapeBarrel
	shapeCone
	shapeBarrier
	shapeUnknown
)

// look is the procedural stand-in for a preset's sprite image
type look struct {
	width, height float64
	body, trim    color.RGBA
	shape         shape
}

var looks = map[string]look{
	engine.RacingCarBlue:      {110, 56, color.RGBA{0x1e, 0x6f, 0xd9, 0xff}, color.RGBA{0xa8, 0xd8, 0xff, 0xff}, shapeCar},
	engine.RacingCarRed:       {110, 56, color.RGBA{0xd9, 0x2b, 0x2b, 0xff}, color.RGBA{0xff, 0xc0, 0xc0, 0xff}, shapeCar},
	engine.RacingBarrelBlue:   {56, 56, color.RGBA{0x22, 0x55, 0xcc, 0xff}, color.RGBA{0x11, 0x2a, 0x66, 0xff}, shapeBarrel},
	engine.RacingBarrelRed:    {56, 56, color.RGBA{0xcc, 0x33, 0x22, 0xff}, color.RGBA{0x66, 0x19, 0x11, 0xff}, shapeBarrel},
	engine.RacingConeStraight: {44, 44, color.RGBA{0xff, 0x7f, 0x00, 0xff}, color.RGBA{0xff, 0xff, 0xff, 0xff}, shapeCone},
	engine.RacingBarrierWhite: {228, 40, color.RGBA{0xf4, 0xf4, 0xf4, 0xff}, color.RGBA{0xd0, 0x20, 0x20, 0xff}, shapeBarrier},
}

func lookFor(preset string) look {
	if l, ok := looks[preset]; ok {
		return l
	}
	return look{50, 50, color.RGBA{0xff, 0x00, 0xff, 0xff}, color.RGBA{0, 0, 0, 0xff}, shapeUnknown}
}

// worldToScreen maps world units (origin centred, y up) to screen pixels
func worldToScreen(v engine.Vec2) (float64, float64) {
	return v.X + engine.ScreenWidth/2, engine.ScreenHeight/2 - v.Y
}

type renderer struct {
	source *text.GoTextFaceSource
	faces  map[float64]*text.GoTextFace
	images map[string]*ebiten.Image
}

func newRenderer() *renderer {
	source, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	if err != nil {
		log.Printf("[Render] Warning: font unavailable: %v", err)
	}
	return &renderer{
		source: source,
		faces:  make(map[float64]*text.GoTextFace),
		images: make(map[string]*ebiten.Image),
	}
}

func (r *renderer) draw(screen *ebiten.Image, state *engine.GameState, hud []string) {
	screen.Fill(backgroundColor)

	if state != nil {
		for _, sprite := range state.SortedSprites() {
			r.drawSprite(screen, sprite)
		}
		for _, t := range state.SortedTexts() {
			clr := hudColor
			if t.Label == engine.GameOverTextLabel {
				clr = gameOverColor
			}
			x, y := worldToScreen(t.Translation)
			r.drawText(screen, t.Value, t.FontSize, x, y, clr, true)
		}
	}

	for i, line := range hud {
		r.drawText(screen, line, 18, 12, 12+float64(i)*24, hudColor, false)
	}
}

func (r *renderer) drawSprite(screen *ebiten.Image, sprite *engine.Sprite) {
	l := lookFor(sprite.Preset)
	img := r.imageFor(sprite.Preset, l)

	scale := sprite.Scale
	if scale <= 0 {
		scale = 1
	}
	x, y := worldToScreen(sprite.Translation)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(-l.width/2, -l.height/2)
	op.GeoM.Scale(scale, scale)
	// World rotation is counter-clockwise with y up
	op.GeoM.Rotate(-sprite.Rotation)
	op.GeoM.Translate(x, y)
	op.Filter = ebiten.FilterLinear
	screen.DrawImage(img, op)
}

// imageFor renders a preset once and caches it
func (r *renderer) imageFor(preset string, l look) *ebiten.Image {
	if img, ok := r.images[preset]; ok {
		return img
	}

	img := ebiten.NewImage(int(l.width), int(l.height))
	w, h := float32(l.width), float32(l.height)
	switch l.shape {
	case shapeCar:
		vector.DrawFilledRect(img, 0, h*0.1, w, h*0.8, l.body, true)
		vector.DrawFilledRect(img, w*0.55, h*0.2, w*0.18, h*0.6, l.trim, true)
		for _, wx := range []float32{w * 0.12, w * 0.72} {
			vector.DrawFilledRect(img, wx, 0, w*0.16, h*0.12, color.Black, true)
			vector.DrawFilledRect(img, wx, h*0.88, w*0.16, h*0.12, color.Black, true)
		}
	case shapeBarrel:
		vector.DrawFilledCircle(img, w/2, h/2, w/2, l.trim, true)
		vector.DrawFilledCircle(img, w/2, h/2, w/2-4, l.body, true)
	case shapeCone:
		// Stacked bands narrowing towards the tip
		const bands = 8
		for i := 0; i < bands; i++ {
			bw := w * float32(bands-i) / bands
			clr := l.body
			if i == 3 || i == 4 {
				clr = l.trim
			}
			vector.DrawFilledRect(img, (w-bw)/2, h-float32(i+1)*h/bands, bw, h/bands+1, clr, true)
		}
	case shapeBarrier:
		vector.DrawFilledRect(img, 0, 0, w, h, l.body, true)
		for x := float32(0); x < w; x += w / 6 {
			vector.DrawFilledRect(img, x, 0, w/12, h, l.trim, true)
		}
	default:
		vector.DrawFilledRect(img, 0, 0, w, h, l.body, true)
	}

	r.images[preset] = img
	return img
}

func (r *renderer) face(size float64) *text.GoTextFace {
	if face, ok := r.faces[size]; ok {
		return face
	}
	face := &text.GoTextFace{Source: r.source, Size: size}
	r.faces[size] = face
	return face
}

func (r *renderer) drawText(screen *ebiten.Image, value string, size, x, y float64, clr color.Color, centred bool) {
	if r.source == nil || value == "" {
		return
	}
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(clr)
	op.LineSpacing = size * 1.2
	if centred {
		op.PrimaryAlign = text.AlignCenter
		op.SecondaryAlign = text.AlignCenter
	}
	text.Draw(screen, value, r.face(size), op)
}
