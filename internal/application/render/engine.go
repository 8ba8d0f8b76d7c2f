// Package render turns molecule strings into 2D SVG drawings and 3D scene
// descriptors.  Rendering never fails: empty and unparsable input produce
// placeholder results.
package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/turtacn/ChemXGen/internal/domain/molecule"
)

// Options sizes the 2D drawing.
type Options struct {
	Width   int
	Height  int
	Padding float64
}

// DefaultOptions matches the card size used by the task views.
var DefaultOptions = Options{Width: 300, Height: 180, Padding: 12}

// Engine holds the layout and drawing configuration.  Construct one with
// NewEngine and share it; it has no mutable state.
type Engine struct {
	opts Options
}

// NewEngine returns an engine drawing at opts, with zero fields taken from
// DefaultOptions.
func NewEngine(opts Options) *Engine {
	if opts.Width <= 0 {
		opts.Width = DefaultOptions.Width
	}
	if opts.Height <= 0 {
		opts.Height = DefaultOptions.Height
	}
	if opts.Padding <= 0 {
		opts.Padding = DefaultOptions.Padding
	}
	return &Engine{opts: opts}
}

var cpkColors = map[string]string{
	"H": "#AAAAAA", "C": "#222222", "N": "#3050F8", "O": "#FF0D0D", "F": "#90E050",
	"Cl": "#1FF01F", "Br": "#A62929", "I": "#940094", "S": "#C8A000", "P": "#FF8000",
	"B": "#FFB5B5", "Si": "#F0C8A0", "Na": "#AB5CF2", "K": "#8F40D4", "Fe": "#E06633",
	"Mg": "#8AFF00", "Ca": "#3DFF00", "Zn": "#7D80B0", "Cu": "#C88033", "Se": "#FFA100",
}

// Color returns the CPK colour of an element.
func Color(element string) string {
	if c, ok := cpkColors[element]; ok {
		return c
	}
	return "#FF1493"
}

var covalentRadii = map[string]float64{
	"H": 0.31, "C": 0.76, "N": 0.71, "O": 0.66, "F": 0.57, "P": 1.07, "S": 1.05,
	"Cl": 1.02, "Br": 1.20, "I": 1.39, "B": 0.84, "Si": 1.11,
}

// Radius returns a display radius for an element.
func Radius(element string) float64 {
	if r, ok := covalentRadii[element]; ok {
		return r
	}
	return 1.2
}

// DrawSVG draws m, laying it out first when it has no coordinates.
func (e *Engine) DrawSVG(m *molecule.Molecule) string {
	m = molecule.Layout2D(m)
	w, h, pad := float64(e.opts.Width), float64(e.opts.Height), e.opts.Padding

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, a := range m.Atoms {
		minX, maxX = math.Min(minX, a.X), math.Max(maxX, a.X)
		minY, maxY = math.Min(minY, a.Y), math.Max(maxY, a.Y)
	}
	spanX, spanY := math.Max(maxX-minX, 1e-6), math.Max(maxY-minY, 1e-6)
	scale := math.Min((w-2*pad)/spanX, (h-2*pad)/spanY)
	// keep single atoms and short chains from being blown up
	scale = math.Min(scale, 40)
	offX := (w - spanX*scale) / 2
	offY := (h - spanY*scale) / 2
	px := func(a molecule.Atom) (float64, float64) {
		// SVG y grows downwards
		return offX + (a.X-minX)*scale, offY + (maxY-a.Y)*scale
	}

	labels := make([]string, len(m.Atoms))
	degree := make([]int, len(m.Atoms))
	for _, b := range m.Bonds {
		degree[b.From]++
		degree[b.To]++
	}
	for i, a := range m.Atoms {
		labels[i] = atomLabel(a, degree[i])
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		e.opts.Width, e.opts.Height, e.opts.Width, e.opts.Height)
	fmt.Fprintf(&sb, `<rect width="%d" height="%d" fill="#FFFFFF"/>`, e.opts.Width, e.opts.Height)

	gap := math.Max(2, scale*0.12)
	for _, b := range m.Bonds {
		x1, y1 := px(m.Atoms[b.From])
		x2, y2 := px(m.Atoms[b.To])
		x1, y1 = shorten(x1, y1, x2, y2, labels[b.From] != "", scale)
		x2, y2 = shorten(x2, y2, x1, y1, labels[b.To] != "", scale)
		dx, dy := x2-x1, y2-y1
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		nx, ny := -dy/l*gap, dx/l*gap
		switch b.Order {
		case molecule.BondDouble:
			line(&sb, x1+nx/2, y1+ny/2, x2+nx/2, y2+ny/2, "")
			line(&sb, x1-nx/2, y1-ny/2, x2-nx/2, y2-ny/2, "")
		case molecule.BondTriple:
			line(&sb, x1, y1, x2, y2, "")
			line(&sb, x1+nx, y1+ny, x2+nx, y2+ny, "")
			line(&sb, x1-nx, y1-ny, x2-nx, y2-ny, "")
		case molecule.BondAromatic:
			line(&sb, x1, y1, x2, y2, "")
			line(&sb, x1+nx, y1+ny, x2+nx, y2+ny, `stroke-dasharray="3,2"`)
		default:
			line(&sb, x1, y1, x2, y2, "")
		}
	}

	fontSize := math.Max(8, math.Min(14, scale*0.45))
	for i, a := range m.Atoms {
		if labels[i] == "" {
			continue
		}
		x, y := px(a)
		fmt.Fprintf(&sb, `<text x="%.2f" y="%.2f" font-family="sans-serif" font-size="%.1f" text-anchor="middle" dominant-baseline="central" fill="%s">%s</text>`,
			x, y, fontSize, Color(a.Element), labels[i])
	}
	sb.WriteString(`</svg>`)
	return sb.String()
}

// atomLabel returns the text drawn at an atom, or "" for a skeletal carbon.
func atomLabel(a molecule.Atom, degree int) string {
	if a.Element == "C" && a.Charge == 0 && a.Isotope == 0 && degree > 0 {
		return ""
	}
	var b strings.Builder
	if a.Isotope > 0 {
		fmt.Fprintf(&b, "<tspan baseline-shift=\"super\" font-size=\"70%%\">%d</tspan>", a.Isotope)
	}
	b.WriteString(escape(a.Element))
	switch {
	case a.HCount == 1:
		b.WriteString("H")
	case a.HCount > 1:
		fmt.Fprintf(&b, "H<tspan baseline-shift=\"sub\" font-size=\"70%%\">%d</tspan>", a.HCount)
	}
	if a.Charge != 0 {
		sign := "+"
		if a.Charge < 0 {
			sign = "-"
		}
		n := a.Charge
		if n < 0 {
			n = -n
		}
		mag := ""
		if n > 1 {
			mag = fmt.Sprint(n)
		}
		fmt.Fprintf(&b, "<tspan baseline-shift=\"super\" font-size=\"70%%\">%s%s</tspan>", mag, sign)
	}
	return b.String()
}

func shorten(x1, y1, x2, y2 float64, labelled bool, scale float64) (float64, float64) {
	if !labelled {
		return x1, y1
	}
	l := math.Hypot(x2-x1, y2-y1)
	if l == 0 {
		return x1, y1
	}
	cut := math.Min(scale*0.3, l/3)
	return x1 + (x2-x1)/l*cut, y1 + (y2-y1)/l*cut
}

func line(sb *strings.Builder, x1, y1, x2, y2 float64, extra string) {
	fmt.Fprintf(sb, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="#222222" stroke-width="1.4" %s/>`,
		x1, y1, x2, y2, extra)
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
