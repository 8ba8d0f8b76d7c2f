package molecule

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/turtacn/ChemXGen/pkg/errors"
)

// organic subset elements and their allowed valences, lowest first.
var defaultValences = map[string][]int{
	"B":  {3},
	"C":  {4},
	"N":  {3, 5},
	"O":  {2},
	"P":  {3, 5},
	"S":  {2, 4, 6},
	"F":  {1},
	"Cl": {1},
	"Br": {1},
	"I":  {1},
	"*":  {0},
}

var aromaticSymbols = map[string]string{
	"b": "B", "c": "C", "n": "N", "o": "O", "p": "P", "s": "S",
	"se": "Se", "as": "As", "te": "Te",
}

type ringOpen struct {
	atom  int
	order int
}

type smilesParser struct {
	src      string
	pos      int
	mol      *Molecule
	explicit []bool // bracket atoms carry their own H count
	prev     int
	bond     int // pending explicit bond order, 0 when none
	branches []int
	rings    map[int]ringOpen
}

// ParseSMILES parses a SMILES string into a molecular graph with implicit
// hydrogens filled in.  Stereo markers are accepted and ignored.
func ParseSMILES(smiles string) (*Molecule, error) {
	smiles = strings.TrimSpace(smiles)
	if err := ValidateSMILES(smiles); err != nil {
		return nil, err
	}
	p := &smilesParser{
		src:   smiles,
		mol:   &Molecule{},
		prev:  -1,
		rings: make(map[int]ringOpen),
	}
	if err := p.parse(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMoleculeFormat, "parse SMILES").
			WithDetail(fmt.Sprintf("pos=%d smiles=%s", p.pos, truncate(smiles, 64)))
	}
	p.fillHydrogens()
	return p.mol, nil
}

func (p *smilesParser) parse() error {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '(':
			if p.prev < 0 {
				return fmt.Errorf("branch without a preceding atom")
			}
			p.branches = append(p.branches, p.prev)
			p.pos++
		case c == ')':
			if len(p.branches) == 0 {
				return fmt.Errorf("unbalanced ')'")
			}
			p.prev = p.branches[len(p.branches)-1]
			p.branches = p.branches[:len(p.branches)-1]
			p.pos++
		case c == '.':
			p.prev = -1
			p.bond = 0
			p.pos++
		case strings.IndexByte("-=#$:/\\", c) >= 0:
			if p.bond != 0 {
				return fmt.Errorf("consecutive bond symbols")
			}
			p.bond = bondOrder(c)
			p.pos++
		case c >= '0' && c <= '9' || c == '%':
			if err := p.ringClosure(); err != nil {
				return err
			}
		case c == '[':
			if err := p.bracketAtom(); err != nil {
				return err
			}
		default:
			if err := p.organicAtom(); err != nil {
				return err
			}
		}
	}
	if len(p.branches) > 0 {
		return fmt.Errorf("unclosed branch")
	}
	if len(p.rings) > 0 {
		return fmt.Errorf("unclosed ring")
	}
	if p.bond != 0 {
		return fmt.Errorf("dangling bond")
	}
	if len(p.mol.Atoms) == 0 {
		return fmt.Errorf("no atoms")
	}
	return nil
}

func bondOrder(c byte) int {
	switch c {
	case '=':
		return BondDouble
	case '#':
		return BondTriple
	case '$':
		return 4 + BondTriple // quadruple, rendered as triple
	case ':':
		return BondAromatic
	default: // '-', '/', '\'
		return BondSingle
	}
}

func (p *smilesParser) addAtom(a Atom, explicitH bool) {
	idx := len(p.mol.Atoms)
	p.mol.Atoms = append(p.mol.Atoms, a)
	p.explicit = append(p.explicit, explicitH)
	if p.prev >= 0 {
		p.addBond(p.prev, idx, p.bond)
	}
	p.prev = idx
	p.bond = 0
}

func (p *smilesParser) addBond(from, to, order int) {
	if order == 0 {
		order = BondSingle
		if p.mol.Atoms[from].Aromatic && p.mol.Atoms[to].Aromatic {
			order = BondAromatic
		}
	}
	if order > BondAromatic {
		order = BondTriple
	}
	p.mol.Bonds = append(p.mol.Bonds, Bond{From: from, To: to, Order: order})
}

func (p *smilesParser) organicAtom() error {
	rest := p.src[p.pos:]
	for _, sym := range []string{"Cl", "Br"} {
		if strings.HasPrefix(rest, sym) {
			p.pos += 2
			p.addAtom(Atom{Element: sym}, false)
			return nil
		}
	}
	c := rest[0]
	sym := string(c)
	switch {
	case c == '*':
		p.addAtom(Atom{Element: "*"}, false)
	case strings.ContainsRune("BCNOPSFI", rune(c)):
		p.addAtom(Atom{Element: sym}, false)
	case strings.ContainsRune("bcnops", rune(c)):
		p.addAtom(Atom{Element: aromaticSymbols[sym], Aromatic: true}, false)
	default:
		return fmt.Errorf("unexpected character %q", c)
	}
	p.pos++
	return nil
}

func (p *smilesParser) ringClosure() error {
	var num int
	if p.src[p.pos] == '%' {
		if p.pos+2 >= len(p.src) {
			return fmt.Errorf("truncated ring number")
		}
		n, err := strconv.Atoi(p.src[p.pos+1 : p.pos+3])
		if err != nil {
			return fmt.Errorf("bad ring number")
		}
		num = n
		p.pos += 3
	} else {
		num = int(p.src[p.pos] - '0')
		p.pos++
	}
	if p.prev < 0 {
		return fmt.Errorf("ring bond without a preceding atom")
	}
	if open, ok := p.rings[num]; ok {
		order := p.bond
		if order == 0 {
			order = open.order
		}
		if open.atom == p.prev {
			return fmt.Errorf("ring closure to self")
		}
		p.addBond(open.atom, p.prev, order)
		delete(p.rings, num)
	} else {
		p.rings[num] = ringOpen{atom: p.prev, order: p.bond}
	}
	p.bond = 0
	return nil
}

// bracketAtom parses [isotope? symbol chiral? hcount? charge? class?].
func (p *smilesParser) bracketAtom() error {
	end := strings.IndexByte(p.src[p.pos:], ']')
	if end < 0 {
		return fmt.Errorf("unclosed bracket atom")
	}
	body := p.src[p.pos+1 : p.pos+end]
	p.pos += end + 1
	if body == "" {
		return fmt.Errorf("empty bracket atom")
	}

	i := 0
	a := Atom{}
	for i < len(body) && unicode.IsDigit(rune(body[i])) {
		i++
	}
	if i > 0 {
		a.Isotope, _ = strconv.Atoi(body[:i])
	}

	sym, aromatic, n := readElement(body[i:])
	if n == 0 {
		return fmt.Errorf("bad element in [%s]", body)
	}
	a.Element, a.Aromatic = sym, aromatic
	i += n

	for i < len(body) && body[i] == '@' {
		i++
	}
	// extended chirality classes such as @TH1 or @SP2
	for i < len(body) && body[i] >= 'A' && body[i] <= 'Z' && body[i] != 'H' {
		i++
	}
	for i < len(body) && unicode.IsDigit(rune(body[i])) && i > 0 && body[i-1] != 'H' {
		i++
	}

	if i < len(body) && body[i] == 'H' {
		i++
		a.HCount = 1
		j := i
		for j < len(body) && unicode.IsDigit(rune(body[j])) {
			j++
		}
		if j > i {
			a.HCount, _ = strconv.Atoi(body[i:j])
			i = j
		}
	}

	if i < len(body) && (body[i] == '+' || body[i] == '-') {
		sign := 1
		if body[i] == '-' {
			sign = -1
		}
		ch := body[i]
		i++
		count := 1
		j := i
		for j < len(body) && unicode.IsDigit(rune(body[j])) {
			j++
		}
		if j > i {
			count, _ = strconv.Atoi(body[i:j])
			i = j
		} else {
			for i < len(body) && body[i] == ch {
				count++
				i++
			}
		}
		a.Charge = sign * count
	}

	if i < len(body) && body[i] == ':' {
		i++
		for i < len(body) && unicode.IsDigit(rune(body[i])) {
			i++
		}
	}
	if i != len(body) {
		return fmt.Errorf("unexpected %q in [%s]", body[i:], body)
	}
	p.addAtom(a, true)
	return nil
}

// readElement reads an element symbol, aromatic or not, from the start of s.
func readElement(s string) (string, bool, int) {
	if s == "" {
		return "", false, 0
	}
	if s[0] == '*' {
		return "*", false, 1
	}
	if len(s) >= 2 {
		if el, ok := aromaticSymbols[s[:2]]; ok {
			return el, true, 2
		}
	}
	if el, ok := aromaticSymbols[s[:1]]; ok {
		return el, true, 1
	}
	if s[0] < 'A' || s[0] > 'Z' {
		return "", false, 0
	}
	if len(s) >= 2 && s[1] >= 'a' && s[1] <= 'z' {
		if _, ok := atomicMass[s[:2]]; ok {
			return s[:2], false, 2
		}
	}
	if _, ok := atomicMass[s[:1]]; ok {
		return s[:1], false, 1
	}
	return "", false, 0
}

// fillHydrogens assigns implicit hydrogens to organic-subset atoms using the
// lowest default valence that accommodates their bonds.
func (p *smilesParser) fillHydrogens() {
	sum := make([]int, len(p.mol.Atoms))
	for _, b := range p.mol.Bonds {
		o := b.Order
		if o == BondAromatic {
			o = 1
		}
		sum[b.From] += o
		sum[b.To] += o
	}
	for i := range p.mol.Atoms {
		if p.explicit[i] {
			continue
		}
		a := &p.mol.Atoms[i]
		used := sum[i]
		if a.Aromatic {
			used++
		}
		a.HCount = 0
		for _, v := range defaultValences[a.Element] {
			if v >= used {
				a.HCount = v - used
				break
			}
		}
	}
}
