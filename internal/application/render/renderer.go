package render

import (
	"fmt"
	"strings"

	"github.com/turtacn/ChemXGen/internal/domain/molecule"
	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

// State is the outcome class of a render.
type State string

const (
	StateOK      State = "ok"
	StateEmpty   State = "empty"
	StateInvalid State = "invalid"
)

// Placeholder messages shown in place of a drawing.
const (
	MessageEmpty   = "No structure"
	MessageInvalid = "Invalid Structure"
)

// Result is a 2D render.
type Result struct {
	State   State           `json:"state"`
	Format  molecule.Format `json:"format,omitempty"`
	SVG     string          `json:"svg,omitempty"`
	Message string          `json:"message,omitempty"`
	Formula string          `json:"formula,omitempty"`
	Weight  float64         `json:"weight,omitempty"`
	// Input echoes the cleaned input, truncated, for error cards.
	Input string `json:"input,omitempty"`
}

// Style is a 3D display style.
type Style string

const (
	StyleStick  Style = "stick"
	StyleSphere Style = "sphere"
	StyleLine   Style = "line"
)

// ParseStyle maps s to a Style, defaulting to stick.
func ParseStyle(s string) Style {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case StyleSphere:
		return StyleSphere
	case StyleLine:
		return StyleLine
	default:
		return StyleStick
	}
}

// SceneAtom is an atom positioned for a 3D viewer.
type SceneAtom struct {
	Element string  `json:"element"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Z       float64 `json:"z"`
	Color   string  `json:"color"`
	Radius  float64 `json:"radius"`
}

// Scene describes a 3D view of a molecule.
type Scene struct {
	State     State           `json:"state"`
	Message   string          `json:"message,omitempty"`
	Style     Style           `json:"style"`
	AtomCount int             `json:"atomCount"`
	Atoms     []SceneAtom     `json:"atoms,omitempty"`
	Bonds     []molecule.Bond `json:"bonds,omitempty"`
	Molfile   string          `json:"molfile,omitempty"`
}

// Renderer renders molecule strings with an Engine.
type Renderer struct {
	engine *Engine
	logger logging.Logger
}

// NewRenderer creates a renderer over engine.
func NewRenderer(engine *Engine, logger logging.Logger) *Renderer {
	return &Renderer{engine: engine, logger: logger.Named("render")}
}

// Render2D draws s as SVG.
func (r *Renderer) Render2D(s string) (res Result) {
	cleaned := molecule.Clean(s)
	res.Input = preview(cleaned)
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("render panicked", logging.String("panic", fmt.Sprint(p)), logging.String("input", res.Input))
			res = Result{State: StateInvalid, Message: MessageInvalid, Input: preview(cleaned)}
		}
	}()

	m, format, err := molecule.ParseAny(cleaned)
	if err != nil {
		return r.placeholder(err, res.Input)
	}
	return Result{
		State:   StateOK,
		Format:  format,
		SVG:     r.engine.DrawSVG(m),
		Formula: m.Formula(),
		Weight:  m.Weight(),
		Input:   res.Input,
	}
}

// Render3D builds a scene for s in the given style.
func (r *Renderer) Render3D(s string, style Style) (scene Scene) {
	scene.Style = style
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("3d render panicked", logging.String("panic", fmt.Sprint(p)))
			scene = Scene{State: StateInvalid, Message: MessageInvalid, Style: style}
		}
	}()

	m, _, err := molecule.ParseAny(s)
	if err != nil {
		res := r.placeholder(err, "")
		return Scene{State: res.State, Message: res.Message, Style: style}
	}
	m = molecule.Embed3D(m)
	scene = Scene{
		State:     StateOK,
		Style:     style,
		AtomCount: len(m.Atoms),
		Bonds:     m.Bonds,
		Molfile:   m.MolBlock(),
		Atoms:     make([]SceneAtom, len(m.Atoms)),
	}
	scale := 0.25
	if style == StyleSphere {
		scale = 0.8
	}
	for i, a := range m.Atoms {
		radius := Radius(a.Element) * scale
		if style == StyleLine {
			radius = 0
		}
		scene.Atoms[i] = SceneAtom{Element: a.Element, X: a.X, Y: a.Y, Z: a.Z, Color: Color(a.Element), Radius: radius}
	}
	return scene
}

func (r *Renderer) placeholder(err error, input string) Result {
	if errors.IsCode(err, errors.ErrCodeRenderEmpty) {
		return Result{State: StateEmpty, Message: MessageEmpty, Input: input}
	}
	r.logger.Debug("could not parse molecule", logging.Err(err), logging.String("input", input))
	return Result{State: StateInvalid, Message: MessageInvalid, Input: input}
}

// preview keeps the first 50 runes of s.
func preview(s string) string {
	const n = 50
	count := 0
	for i := range s {
		if count == n {
			return s[:i] + "..."
		}
		count++
	}
	return s
}
