// Package og draws the Open Graph preview image shown when a post is shared.
package og

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var ogLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	ogLogger = l
}

const (
	Width  = 1200
	Height = 630

	margin    = 80
	titleSize = 64
	siteSize  = 36
	maxLines  = 4
)

var (
	foreground = color.RGBA{0x22, 0x22, 0x28, 0xff}
	accent     = color.RGBA{0x8a, 0x5a, 0x2b, 0xff}
)

type faces struct {
	title font.Face
	site  font.Face
}

var (
	loadOnce sync.Once
	loaded   faces
	loadErr  error
)

func loadFaces() (faces, error) {
	loadOnce.Do(func() {
		bold, err := opentype.Parse(gobold.TTF)
		if err != nil {
			loadErr = fmt.Errorf("error parsing title font: %w", err)
			return
		}
		regular, err := opentype.Parse(goregular.TTF)
		if err != nil {
			loadErr = fmt.Errorf("error parsing site font: %w", err)
			return
		}

		loaded.title, err = opentype.NewFace(bold, &opentype.FaceOptions{Size: titleSize, DPI: 72, Hinting: font.HintingFull})
		if err != nil {
			loadErr = fmt.Errorf("error creating title face: %w", err)
			return
		}
		loaded.site, err = opentype.NewFace(regular, &opentype.FaceOptions{Size: siteSize, DPI: 72, Hinting: font.HintingFull})
		if err != nil {
			loadErr = fmt.Errorf("error creating site face: %w", err)
		}
	})
	return loaded, loadErr
}

// Generate returns a PNG card with title over the site name. An empty title shows only
// the site name.
func Generate(title, siteName string) ([]byte, error) {
	f, err := loadFaces()
	if err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = siteName
	}

	img := imaging.New(Width, Height, color.White)
	// Accent band along the bottom edge.
	img = imaging.Paste(img, imaging.New(Width, 12, accent), image.Pt(0, Height-12))

	d := &font.Drawer{Dst: img, Src: image.NewUniform(foreground), Face: f.title}
	lines := wrap(d, title, Width-2*margin)
	lineHeight := f.title.Metrics().Height.Ceil() + 12
	ascent := f.title.Metrics().Ascent.Ceil()

	// The title block is centered in the area above the site name.
	area := Height - 2*margin - f.site.Metrics().Height.Ceil()
	y := margin + (area-len(lines)*lineHeight)/2 + ascent
	for _, line := range lines {
		drawCentered(d, line, y)
		y += lineHeight
	}

	d.Face = f.site
	d.Src = image.NewUniform(accent)
	drawCentered(d, siteName, Height-margin)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("error encoding og image: %w", err)
	}
	ogLogger.Debug().Str("title", title).Int("bytes", buf.Len()).Msg("Generated og image")
	return buf.Bytes(), nil
}

func drawCentered(d *font.Drawer, s string, y int) {
	w := d.MeasureString(s)
	d.Dot = fixed.Point26_6{X: (fixed.I(Width) - w) / 2, Y: fixed.I(y)}
	d.DrawString(s)
}

// wrap breaks s into lines no wider than width. Words longer than a line and text without
// spaces are broken between runes. At most maxLines lines are returned, the last one
// ending in an ellipsis when text was cut.
func wrap(d *font.Drawer, s string, width int) []string {
	limit := fixed.I(width)
	var lines []string
	var line []rune

	flush := func() {
		lines = append(lines, strings.TrimSpace(string(line)))
		line = line[:0]
	}

	for _, r := range s {
		if r == '\n' {
			flush()
			continue
		}
		candidate := append(line, r)
		if d.MeasureString(string(candidate)) <= limit {
			line = candidate
			continue
		}
		// Prefer breaking at the last space on the line.
		if i := lastSpace(line); i > 0 && r != ' ' {
			rest := append([]rune{}, line[i+1:]...)
			line = line[:i]
			flush()
			line = append(rest, r)
			continue
		}
		flush()
		if r != ' ' {
			line = append(line, r)
		}
	}
	if len(line) > 0 {
		flush()
	}

	if len(lines) > maxLines {
		lines = lines[:maxLines]
		last := []rune(lines[maxLines-1])
		for len(last) > 0 && d.MeasureString(string(last)+"…") > limit {
			last = last[:len(last)-1]
		}
		lines[maxLines-1] = string(last) + "…"
	}
	return lines
}

func lastSpace(rs []rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i] == ' ' {
			return i
		}
	}
	return -1
}
