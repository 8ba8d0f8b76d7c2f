package molecule

import "math"

// BondLength is the target distance between bonded atoms in generated
// coordinates.
const BondLength = 1.5

const (
	refineIterations = 300
	refineMaxAtoms   = 400
	componentGap     = 2.0
)

// Layout2D returns a copy of m with 2D coordinates.  Structures that already
// carry coordinates are returned unchanged (flattened to Z=0).
func Layout2D(m *Molecule) *Molecule {
	out := m.Clone()
	if out.HasCoordinates() {
		for i := range out.Atoms {
			out.Atoms[i].Z = 0
		}
		return out
	}
	adj := out.Neighbors()
	pos := make([][3]float64, len(out.Atoms))
	placed := make([]bool, len(out.Atoms))

	offsetX := 0.0
	for root := range out.Atoms {
		if placed[root] {
			continue
		}
		comp := placeTree(root, adj, pos, placed)
		refine(comp, out.Bonds, pos, 2)
		minX, maxX := math.Inf(1), math.Inf(-1)
		for _, i := range comp {
			minX = math.Min(minX, pos[i][0])
			maxX = math.Max(maxX, pos[i][0])
		}
		shift := offsetX - minX
		for _, i := range comp {
			pos[i][0] += shift
		}
		offsetX += maxX - minX + componentGap
	}
	for i := range out.Atoms {
		out.Atoms[i].X, out.Atoms[i].Y, out.Atoms[i].Z = pos[i][0], pos[i][1], 0
	}
	return out
}

// Embed3D returns a copy of m with 3D coordinates.  A structure that is
// already 3D is returned unchanged; a flat one is lifted out of the plane by
// alternating depth along the bond tree and relaxed in three dimensions.
func Embed3D(m *Molecule) *Molecule {
	for _, a := range m.Atoms {
		if a.Z != 0 {
			return m.Clone()
		}
	}
	out := Layout2D(m)
	adj := out.Neighbors()
	depth := bfsDepth(adj)
	pos := make([][3]float64, len(out.Atoms))
	all := make([]int, len(out.Atoms))
	for i, a := range out.Atoms {
		z := 0.0
		if !a.Aromatic {
			z = 0.35 * math.Cos(float64(depth[i])*math.Pi)
		}
		pos[i] = [3]float64{a.X, a.Y, z}
		all[i] = i
	}
	refine(all, out.Bonds, pos, 3)
	for i := range out.Atoms {
		out.Atoms[i].X, out.Atoms[i].Y, out.Atoms[i].Z = pos[i][0], pos[i][1], pos[i][2]
	}
	return out
}

// placeTree lays a connected component out as a zig-zag tree rooted at
// root and returns its atom indices in visit order.
func placeTree(root int, adj [][]int, pos [][3]float64, placed []bool) []int {
	type item struct {
		atom   int
		parent int
		angle  float64
	}
	placed[root] = true
	pos[root] = [3]float64{}
	comp := []int{root}
	queue := []item{{atom: root, parent: -1, angle: 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		var children []int
		for _, n := range adj[cur.atom] {
			if !placed[n] {
				children = append(children, n)
			}
		}
		if len(children) == 0 {
			continue
		}
		var angles []float64
		if cur.parent < 0 {
			step := 2 * math.Pi / float64(len(children))
			for k := range children {
				angles = append(angles, float64(k)*step)
			}
		} else {
			// spread children over the half-plane away from the parent
			spread := math.Pi * 2 / 3
			if len(children) > 1 {
				spread = math.Pi * 4 / 3 / float64(len(children)-1)
			}
			start := cur.angle - spread*float64(len(children)-1)/2
			if len(children) == 1 {
				// zig-zag chains
				start = cur.angle + math.Pi/3*zig(len(comp))
			}
			for k := range children {
				angles = append(angles, start+float64(k)*spread)
			}
		}
		for k, c := range children {
			placed[c] = true
			pos[c] = [3]float64{
				pos[cur.atom][0] + BondLength*math.Cos(angles[k]),
				pos[cur.atom][1] + BondLength*math.Sin(angles[k]),
				0,
			}
			comp = append(comp, c)
			queue = append(queue, item{atom: c, parent: cur.atom, angle: angles[k]})
		}
	}
	return comp
}

func zig(n int) float64 {
	if n%2 == 0 {
		return 1
	}
	return -1
}

// refine relaxes positions with a spring model: bonded atoms pull toward
// BondLength, all other pairs repel.  Deterministic for a given input.
func refine(atoms []int, bonds []Bond, pos [][3]float64, dims int) {
	if len(atoms) < 3 || len(atoms) > refineMaxAtoms {
		return
	}
	in := make(map[int]bool, len(atoms))
	for _, a := range atoms {
		in[a] = true
	}
	bonded := make(map[[2]int]bool)
	for _, b := range bonds {
		if in[b.From] && in[b.To] {
			bonded[[2]int{b.From, b.To}] = true
			bonded[[2]int{b.To, b.From}] = true
		}
	}

	step := 0.1
	for it := 0; it < refineIterations; it++ {
		force := make(map[int][3]float64, len(atoms))
		for x := 0; x < len(atoms); x++ {
			for y := x + 1; y < len(atoms); y++ {
				i, j := atoms[x], atoms[y]
				var d [3]float64
				dist := 0.0
				for k := 0; k < dims; k++ {
					d[k] = pos[j][k] - pos[i][k]
					dist += d[k] * d[k]
				}
				dist = math.Sqrt(dist)
				if dist < 1e-6 {
					d[0], dist = 1e-3*float64(y-x), 1e-3*float64(y-x)
				}
				var f float64
				if bonded[[2]int{i, j}] {
					f = (dist - BondLength) * 0.5
				} else if dist < 2.5*BondLength {
					f = -BondLength * BondLength / (dist * dist) * 0.15
				}
				if f == 0 {
					continue
				}
				fi, fj := force[i], force[j]
				for k := 0; k < dims; k++ {
					fi[k] += f * d[k] / dist
					fj[k] -= f * d[k] / dist
				}
				force[i], force[j] = fi, fj
			}
		}
		for _, a := range atoms {
			f := force[a]
			for k := 0; k < dims; k++ {
				pos[a][k] += clamp(f[k]*step, 0.3)
			}
		}
		step *= 0.995
	}
}

func bfsDepth(adj [][]int) []int {
	depth := make([]int, len(adj))
	for i := range depth {
		depth[i] = -1
	}
	for root := range adj {
		if depth[root] >= 0 {
			continue
		}
		depth[root] = 0
		queue := []int{root}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, n := range adj[cur] {
				if depth[n] < 0 {
					depth[n] = depth[cur] + 1
					queue = append(queue, n)
				}
			}
		}
	}
	return depth
}

func clamp(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
