// Package molecule provides the structure model used by the renderer and the
// prediction gateway: input sniffing, SMILES and V2000 MOL block parsing, a
// molecular graph with computed composition, coordinate generation and
// path fingerprints for local similarity scoring.
package molecule

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/turtacn/ChemXGen/pkg/errors"
)

// Format is the encoding a molecule string was recognised as.
type Format string

const (
	FormatSMILES  Format = "smiles"
	FormatMolfile Format = "molfile"
)

// Atom is a node of the molecular graph.  Coordinates are in Angstrom-like
// units; Z is zero for 2D structures.
type Atom struct {
	Element  string  `json:"element"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	Charge   int     `json:"charge,omitempty"`
	Isotope  int     `json:"isotope,omitempty"`
	HCount   int     `json:"hCount"`
	Aromatic bool    `json:"aromatic,omitempty"`
}

// Bond orders follow the MOL file convention.
const (
	BondSingle   = 1
	BondDouble   = 2
	BondTriple   = 3
	BondAromatic = 4
)

// Bond joins two atoms by index.
type Bond struct {
	From  int `json:"from"`
	To    int `json:"to"`
	Order int `json:"order"`
}

// Molecule is a parsed structure.
type Molecule struct {
	Name  string `json:"name,omitempty"`
	Atoms []Atom `json:"atoms"`
	Bonds []Bond `json:"bonds"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Input handling
// ─────────────────────────────────────────────────────────────────────────────

var codeFence = regexp.MustCompile("```(?:[A-Za-z]+[ \t]*\n)?")

// Clean strips the decoration model output tends to carry: surrounding
// whitespace, markdown code fences and one layer of quotes.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(codeFence.ReplaceAllString(s, ""))
	for _, q := range []string{`"`, "'"} {
		if strings.HasPrefix(s, q) {
			s = s[len(q):]
			break
		}
	}
	for _, q := range []string{`"`, "'"} {
		if strings.HasSuffix(s, q) {
			s = s[:len(s)-len(q)]
			break
		}
	}
	return strings.TrimSpace(s)
}

// IsEmpty reports whether cleaned input carries no structure: nothing at all,
// or a V2000 block whose counts line declares no atoms and no bonds, which
// model responses use as a placeholder.
func IsEmpty(cleaned string) bool {
	if cleaned == "" {
		return true
	}
	for _, line := range strings.Split(cleaned, "\n") {
		if !strings.Contains(line, "V2000") {
			continue
		}
		atoms, ok1 := fixedInt(line, 0, 3)
		bonds, ok2 := fixedInt(line, 3, 6)
		return ok1 && ok2 && atoms == 0 && bonds == 0
	}
	return false
}

// Sniff guesses the format of cleaned input.  SMILES never spans lines, so
// anything longer than five lines is treated as a MOL block.
func Sniff(cleaned string) Format {
	if strings.Contains(cleaned, "M  END") || strings.Contains(cleaned, "V2000") ||
		len(strings.Split(cleaned, "\n")) > 5 {
		return FormatMolfile
	}
	return FormatSMILES
}

// Parse reads s in the given format.
func Parse(s string, f Format) (*Molecule, error) {
	if f == FormatMolfile {
		return ParseMolfile(s)
	}
	return ParseSMILES(s)
}

// ParseAny cleans and sniffs s, then parses it, falling back to the other
// format when the guess fails.  It returns the format that succeeded.
func ParseAny(s string) (*Molecule, Format, error) {
	cleaned := Clean(s)
	if IsEmpty(cleaned) {
		return nil, "", errors.New(errors.ErrCodeRenderEmpty, "no structure")
	}
	first := Sniff(cleaned)
	m, err := Parse(cleaned, first)
	if err == nil {
		return m, first, nil
	}
	second := FormatSMILES
	if first == FormatSMILES {
		second = FormatMolfile
	}
	if m, err2 := Parse(cleaned, second); err2 == nil {
		return m, second, nil
	}
	return nil, "", errors.Wrap(err, errors.ErrCodeRenderInvalid, "invalid structure")
}

var (
	// validSMILESChars defines the allowed character set for SMILES notation.
	validSMILESChars = regexp.MustCompile(`^[A-Za-z0-9@+\-\[\]()=#$:/\\%.*]+$`)
)

// ValidateSMILES performs the cheap lexical checks that run before parsing:
// character set and bracket balance.
func ValidateSMILES(smiles string) error {
	smiles = strings.TrimSpace(smiles)
	if smiles == "" {
		return errors.New(errors.ErrCodeMoleculeFormat, "SMILES string cannot be empty")
	}
	if !validSMILESChars.MatchString(smiles) {
		return errors.New(errors.ErrCodeMoleculeFormat, "SMILES contains invalid characters").
			WithDetail(fmt.Sprintf("smiles=%s", truncate(smiles, 64)))
	}
	return validateBrackets(smiles)
}

// validateBrackets checks that all brackets in the SMILES string are balanced.
func validateBrackets(smiles string) error {
	var stack []rune
	closers := map[rune]rune{')': '(', ']': '['}

	for _, ch := range smiles {
		switch ch {
		case '(', '[':
			stack = append(stack, ch)
		case ')', ']':
			if len(stack) == 0 || stack[len(stack)-1] != closers[ch] {
				return errors.New(errors.ErrCodeMoleculeFormat, "unmatched brackets in SMILES").
					WithDetail(fmt.Sprintf("smiles=%s", truncate(smiles, 64)))
			}
			stack = stack[:len(stack)-1]
		}
	}

	if len(stack) != 0 {
		return errors.New(errors.ErrCodeMoleculeFormat, "unclosed brackets in SMILES").
			WithDetail(fmt.Sprintf("smiles=%s", truncate(smiles, 64)))
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Composition
// ─────────────────────────────────────────────────────────────────────────────

// Neighbors returns the adjacency list of m.
func (m *Molecule) Neighbors() [][]int {
	adj := make([][]int, len(m.Atoms))
	for _, b := range m.Bonds {
		adj[b.From] = append(adj[b.From], b.To)
		adj[b.To] = append(adj[b.To], b.From)
	}
	return adj
}

// HeavyAtomCount counts non-hydrogen atoms.
func (m *Molecule) HeavyAtomCount() int {
	n := 0
	for _, a := range m.Atoms {
		if a.Element != "H" {
			n++
		}
	}
	return n
}

func (m *Molecule) elementCounts() map[string]int {
	counts := make(map[string]int)
	for _, a := range m.Atoms {
		counts[a.Element]++
		if a.HCount > 0 {
			counts["H"] += a.HCount
		}
	}
	return counts
}

// Formula returns the molecular formula in Hill order.
func (m *Molecule) Formula() string {
	counts := m.elementCounts()
	var b strings.Builder
	write := func(el string) {
		n := counts[el]
		if n == 0 {
			return
		}
		b.WriteString(el)
		if n > 1 {
			fmt.Fprintf(&b, "%d", n)
		}
		delete(counts, el)
	}
	if counts["C"] > 0 {
		write("C")
		write("H")
	}
	rest := make([]string, 0, len(counts))
	for el := range counts {
		rest = append(rest, el)
	}
	sort.Strings(rest)
	for _, el := range rest {
		write(el)
	}
	return b.String()
}

// Weight returns the average molecular weight in g/mol.  Elements missing
// from the mass table contribute nothing.
func (m *Molecule) Weight() float64 {
	w := 0.0
	for el, n := range m.elementCounts() {
		w += atomicMass[el] * float64(n)
	}
	return w
}

// HasCoordinates reports whether any atom is placed away from the origin.
func (m *Molecule) HasCoordinates() bool {
	for _, a := range m.Atoms {
		if a.X != 0 || a.Y != 0 || a.Z != 0 {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (m *Molecule) Clone() *Molecule {
	c := &Molecule{Name: m.Name}
	c.Atoms = append([]Atom(nil), m.Atoms...)
	c.Bonds = append([]Bond(nil), m.Bonds...)
	return c
}

var atomicMass = map[string]float64{
	"H": 1.008, "He": 4.003, "Li": 6.94, "Be": 9.012, "B": 10.81, "C": 12.011,
	"N": 14.007, "O": 15.999, "F": 18.998, "Ne": 20.180, "Na": 22.990, "Mg": 24.305,
	"Al": 26.982, "Si": 28.085, "P": 30.974, "S": 32.06, "Cl": 35.45, "Ar": 39.948,
	"K": 39.098, "Ca": 40.078, "Ti": 47.867, "Cr": 51.996, "Mn": 54.938, "Fe": 55.845,
	"Co": 58.933, "Ni": 58.693, "Cu": 63.546, "Zn": 65.38, "Ga": 69.723, "Ge": 72.630,
	"As": 74.922, "Se": 78.971, "Br": 79.904, "Rb": 85.468, "Sr": 87.62, "Ag": 107.868,
	"Pd": 106.42, "Pt": 195.084, "Au": 196.967, "Hg": 200.592, "Cd": 112.414, "Sn": 118.710,
	"Sb": 121.760, "Te": 127.60, "I": 126.904, "Cs": 132.905, "Ba": 137.327, "Pb": 207.2,
	"Bi": 208.980, "Ru": 101.07, "Rh": 102.906, "Ir": 192.217, "Os": 190.23, "Mo": 95.95,
	"W": 183.84, "V": 50.942, "Zr": 91.224, "Gd": 157.25,
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
