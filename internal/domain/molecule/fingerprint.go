package molecule

import (
	"fmt"
	"hash/fnv"
	"math/bits"
	"sort"
	"strings"
)

// Fingerprint is a folded bit vector describing a structure.  Bit i is stored
// in byte i/8 at bit position i%8.
type Fingerprint struct {
	Bits      []byte `json:"bits"`
	Length    int    `json:"length"`
	NumOnBits int    `json:"num_on_bits"`
}

// Default fingerprint parameters.
const (
	DefaultFingerprintBits = 2048
	DefaultMaxPath         = 6
)

// NewFingerprint returns an all-zero fingerprint of length bits.
func NewFingerprint(length int) *Fingerprint {
	if length <= 0 {
		length = DefaultFingerprintBits
	}
	return &Fingerprint{Bits: make([]byte, (length+7)/8), Length: length}
}

// GetBit returns true if the bit at the given index is set.
func (fp *Fingerprint) GetBit(index int) bool {
	if index < 0 || index >= fp.Length {
		return false
	}
	return fp.Bits[index/8]&(1<<uint(index%8)) != 0
}

// SetBit sets the bit at the given index to 1.
func (fp *Fingerprint) SetBit(index int) {
	if index < 0 || index >= fp.Length {
		return
	}
	old := fp.Bits[index/8]
	fp.Bits[index/8] |= 1 << uint(index%8)
	if old != fp.Bits[index/8] {
		fp.NumOnBits++
	}
}

// PathFingerprint hashes every simple path of up to maxPath bonds, labelled
// by element, aromaticity and bond order, into a bit vector of nBits.  Each
// path is hashed in a direction-independent form.
func PathFingerprint(m *Molecule, maxPath, nBits int) *Fingerprint {
	if maxPath <= 0 {
		maxPath = DefaultMaxPath
	}
	fp := NewFingerprint(nBits)
	if m == nil || len(m.Atoms) == 0 {
		return fp
	}

	aromAtom, aromBond := perceiveAromatic(m)
	type edge struct{ to, order int }
	adj := make([][]edge, len(m.Atoms))
	for i, b := range m.Bonds {
		order := b.Order
		if aromBond[i] {
			order = BondAromatic
		}
		adj[b.From] = append(adj[b.From], edge{b.To, order})
		adj[b.To] = append(adj[b.To], edge{b.From, order})
	}
	label := func(i int) string {
		if aromAtom[i] {
			return strings.ToLower(m.Atoms[i].Element)
		}
		return m.Atoms[i].Element
	}

	seen := make(map[string]struct{})
	visited := make([]bool, len(m.Atoms))
	var path []string

	var walk func(atom, depth int)
	walk = func(atom, depth int) {
		key := canonicalPath(path)
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			fp.SetBit(int(hashString(key) % uint64(fp.Length)))
		}
		if depth == maxPath {
			return
		}
		visited[atom] = true
		for _, e := range adj[atom] {
			if visited[e.to] {
				continue
			}
			path = append(path, fmt.Sprint(e.order), label(e.to))
			walk(e.to, depth+1)
			path = path[:len(path)-2]
		}
		visited[atom] = false
	}

	for i := range m.Atoms {
		path = append(path[:0], label(i))
		walk(i, 0)
	}
	return fp
}

// perceiveAromatic marks atoms and bonds that are aromatic either as written
// or as members of a six-membered ring of alternating single and double
// bonds, so Kekulé and aromatic encodings of one structure label alike.
func perceiveAromatic(m *Molecule) ([]bool, []bool) {
	atoms := make([]bool, len(m.Atoms))
	bonds := make([]bool, len(m.Bonds))
	for i, a := range m.Atoms {
		atoms[i] = a.Aromatic
	}
	for i, b := range m.Bonds {
		if b.Order == BondAromatic {
			bonds[i] = true
			atoms[b.From], atoms[b.To] = true, true
		}
	}

	type edge struct{ to, bond int }
	adj := make([][]edge, len(m.Atoms))
	for i, b := range m.Bonds {
		adj[b.From] = append(adj[b.From], edge{b.To, i})
		adj[b.To] = append(adj[b.To], edge{b.From, i})
	}

	const ringSize = 6
	var cycle []int // bond indices
	onPath := make([]bool, len(m.Atoms))
	var dfs func(start, cur, depth int)
	dfs = func(start, cur, depth int) {
		for _, e := range adj[cur] {
			if depth == ringSize-1 {
				if e.to == start && alternates(m, append(cycle, e.bond)) {
					for _, bi := range append(cycle, e.bond) {
						bonds[bi] = true
						atoms[m.Bonds[bi].From], atoms[m.Bonds[bi].To] = true, true
					}
				}
				continue
			}
			// start is the smallest index of the ring
			if onPath[e.to] || e.to < start {
				continue
			}
			onPath[e.to] = true
			cycle = append(cycle, e.bond)
			dfs(start, e.to, depth+1)
			cycle = cycle[:len(cycle)-1]
			onPath[e.to] = false
		}
	}
	for s := range m.Atoms {
		onPath[s] = true
		dfs(s, s, 0)
		onPath[s] = false
	}
	return atoms, bonds
}

func alternates(m *Molecule, ring []int) bool {
	for i, bi := range ring {
		a := m.Bonds[bi].Order
		b := m.Bonds[ring[(i+1)%len(ring)]].Order
		if a == BondAromatic && b == BondAromatic {
			continue
		}
		if !(a == BondSingle && b == BondDouble) && !(a == BondDouble && b == BondSingle) {
			return false
		}
	}
	return true
}

// canonicalPath joins a path so that it reads the same from either end.
func canonicalPath(p []string) string {
	fwd := strings.Join(p, "")
	rev := make([]string, len(p))
	for i := range p {
		rev[len(p)-1-i] = p[i]
	}
	back := strings.Join(rev, "")
	if back < fwd {
		return back
	}
	return fwd
}

func hashString(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// OnBits lists the indices of set bits in ascending order.
func (fp *Fingerprint) OnBits() []int {
	out := make([]int, 0, fp.NumOnBits)
	for i, b := range fp.Bits {
		for b != 0 {
			k := bits.TrailingZeros8(b)
			out = append(out, i*8+k)
			b &^= 1 << uint(k)
		}
	}
	sort.Ints(out)
	return out
}
