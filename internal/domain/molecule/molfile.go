package molecule

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/turtacn/ChemXGen/pkg/errors"
)

// ParseMolfile reads the first structure of a V2000 MOL block.  The header
// may be shortened or missing; the counts line is located by its V2000 tag
// and, failing that, assumed to be the fourth line.
func ParseMolfile(block string) (*Molecule, error) {
	lines := strings.Split(strings.ReplaceAll(block, "\r\n", "\n"), "\n")
	if len(lines) < 4 {
		return nil, molfileError("too few lines", 0)
	}

	countsIdx := -1
	for i, line := range lines {
		if strings.Contains(line, "V3000") {
			return nil, molfileError("V3000 is not supported", i+1)
		}
		if strings.Contains(line, "V2000") {
			countsIdx = i
			break
		}
	}
	if countsIdx < 0 {
		countsIdx = 3
	}
	counts := lines[countsIdx]
	numAtoms, ok1 := fixedInt(counts, 0, 3)
	numBonds, ok2 := fixedInt(counts, 3, 6)
	if !ok1 || !ok2 {
		return nil, molfileError("malformed counts line", countsIdx+1)
	}
	if numAtoms == 0 {
		return nil, molfileError("no atoms", countsIdx+1)
	}
	body := lines[countsIdx+1:]
	if len(body) < numAtoms+numBonds {
		return nil, molfileError("lines too short for atoms and bonds", countsIdx+1)
	}

	m := &Molecule{Atoms: make([]Atom, 0, numAtoms), Bonds: make([]Bond, 0, numBonds)}
	if countsIdx == 3 {
		m.Name = strings.TrimSpace(lines[0])
	}
	for i := 0; i < numAtoms; i++ {
		a, err := parseAtomLine(body[i])
		if err != nil {
			return nil, molfileError(err.Error(), countsIdx+2+i)
		}
		m.Atoms = append(m.Atoms, a)
	}
	for i := 0; i < numBonds; i++ {
		lineNo := countsIdx + 2 + numAtoms + i
		l := body[numAtoms+i]
		from, ok1 := fixedInt(l, 0, 3)
		to, ok2 := fixedInt(l, 3, 6)
		order, ok3 := fixedInt(l, 6, 9)
		if !ok1 || !ok2 || !ok3 {
			return nil, molfileError("malformed bond line", lineNo)
		}
		if from < 1 || to < 1 || from > numAtoms || to > numAtoms || from == to {
			return nil, molfileError("bond references unknown atom", lineNo)
		}
		if order < BondSingle || order > BondAromatic {
			order = BondSingle
		}
		m.Bonds = append(m.Bonds, Bond{From: from - 1, To: to - 1, Order: order})
	}

	for _, l := range body[numAtoms+numBonds:] {
		if strings.HasPrefix(l, "M  CHG") {
			applyCharges(m, l)
		}
		if strings.HasPrefix(l, "M  END") {
			break
		}
	}
	hydrogenate(m)
	return m, nil
}

func parseAtomLine(l string) (Atom, error) {
	if len(l) < 34 {
		// tolerate whitespace-separated atom lines from sloppy writers
		f := strings.Fields(l)
		if len(f) < 4 {
			return Atom{}, fmt.Errorf("short atom line")
		}
		x, err1 := strconv.ParseFloat(f[0], 64)
		y, err2 := strconv.ParseFloat(f[1], 64)
		z, err3 := strconv.ParseFloat(f[2], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return Atom{}, fmt.Errorf("bad coordinates")
		}
		return Atom{X: x, Y: y, Z: z, Element: f[3]}, nil
	}
	x, err1 := strconv.ParseFloat(strings.TrimSpace(l[0:10]), 64)
	y, err2 := strconv.ParseFloat(strings.TrimSpace(l[10:20]), 64)
	z, err3 := strconv.ParseFloat(strings.TrimSpace(l[20:30]), 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return Atom{}, fmt.Errorf("bad coordinates")
	}
	el := strings.TrimSpace(l[31:34])
	if el == "" {
		return Atom{}, fmt.Errorf("missing element")
	}
	a := Atom{X: x, Y: y, Z: z, Element: el}
	if c, ok := fixedInt(l, 36, 39); ok && c != 0 {
		// legacy charge field: 1=+3 2=+2 3=+1 5=-1 6=-2 7=-3
		if c >= 1 && c <= 7 && c != 4 {
			a.Charge = 4 - c
		}
	}
	return a, nil
}

// applyCharges reads an "M  CHG  n aaa vvv ..." property line.
func applyCharges(m *Molecule, l string) {
	f := strings.Fields(l)
	if len(f) < 3 {
		return
	}
	for i := 3; i+1 < len(f); i += 2 {
		idx, err1 := strconv.Atoi(f[i])
		chg, err2 := strconv.Atoi(f[i+1])
		if err1 == nil && err2 == nil && idx >= 1 && idx <= len(m.Atoms) {
			m.Atoms[idx-1].Charge = chg
		}
	}
}

// hydrogenate fills implicit hydrogen counts from bond order sums.
func hydrogenate(m *Molecule) {
	sum := make([]int, len(m.Atoms))
	aromatic := make([]bool, len(m.Atoms))
	for _, b := range m.Bonds {
		o := b.Order
		if o == BondAromatic {
			o = 1
			aromatic[b.From], aromatic[b.To] = true, true
		}
		sum[b.From] += o
		sum[b.To] += o
	}
	for i := range m.Atoms {
		a := &m.Atoms[i]
		a.Aromatic = aromatic[i]
		used := sum[i]
		if aromatic[i] {
			used++
		}
		if a.Element == "N" && a.Charge > 0 {
			used -= a.Charge
		}
		a.HCount = 0
		if a.Charge != 0 && a.Element != "N" {
			continue
		}
		for _, v := range defaultValences[a.Element] {
			if v >= used {
				a.HCount = v - used
				break
			}
		}
	}
}

// MolBlock writes m as a V2000 MOL block.
func (m *Molecule) MolBlock() string {
	var b strings.Builder
	b.WriteString(m.Name)
	b.WriteString("\n  ChemXGen\n\n")
	fmt.Fprintf(&b, "%3d%3d  0  0  0  0  0  0  0  0999 V2000\n", len(m.Atoms), len(m.Bonds))
	for _, a := range m.Atoms {
		el := a.Element
		if el == "*" {
			el = "R"
		}
		fmt.Fprintf(&b, "%10.4f%10.4f%10.4f %-3s 0  0  0  0  0  0  0  0  0  0  0  0\n", a.X, a.Y, a.Z, el)
	}
	for _, bd := range m.Bonds {
		fmt.Fprintf(&b, "%3d%3d%3d  0\n", bd.From+1, bd.To+1, bd.Order)
	}
	var charged []int
	for i, a := range m.Atoms {
		if a.Charge != 0 {
			charged = append(charged, i)
		}
	}
	for start := 0; start < len(charged); start += 8 {
		end := start + 8
		if end > len(charged) {
			end = len(charged)
		}
		fmt.Fprintf(&b, "M  CHG%3d", end-start)
		for _, i := range charged[start:end] {
			fmt.Fprintf(&b, " %3d %3d", i+1, m.Atoms[i].Charge)
		}
		b.WriteString("\n")
	}
	b.WriteString("M  END\n")
	return b.String()
}

// AtomCountHint reads the atom count from the counts line (fourth line) of a
// MOL block without parsing the rest.  It returns 0 when unavailable.
func AtomCountHint(block string) int {
	lines := strings.Split(block, "\n")
	if len(lines) < 4 {
		return 0
	}
	counts := strings.TrimSpace(lines[3])
	if len(counts) > 3 {
		counts = counts[:3]
	}
	end := 0
	for end < len(counts) && counts[end] >= '0' && counts[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(counts[:end])
	if err != nil {
		return 0
	}
	return n
}

func fixedInt(s string, from, to int) (int, bool) {
	if len(s) < to {
		if len(s) <= from {
			return 0, false
		}
		to = len(s)
	}
	v := strings.TrimSpace(s[from:to])
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

func molfileError(msg string, line int) error {
	return errors.New(errors.ErrCodeMoleculeFormat, "invalid MOL block").
		WithDetail(fmt.Sprintf("line %d: %s", line, msg))
}
