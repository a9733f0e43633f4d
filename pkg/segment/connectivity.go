package segment

// Connectivity selects the voxel neighbourhood used for flooding and
// component labelling.
type Connectivity int

const (
	// Face connects voxels sharing a face (6 neighbours).
	Face Connectivity = 6
	// Full connects voxels sharing a face, edge or corner (26 neighbours).
	Full Connectivity = 26
)

// offsets returns the (dz, dy, dx) neighbour offsets of c.
func (c Connectivity) offsets() [][3]int {
	if c == Face {
		return [][3]int{
			{-1, 0, 0}, {1, 0, 0},
			{0, -1, 0}, {0, 1, 0},
			{0, 0, -1}, {0, 0, 1},
		}
	}
	out := make([][3]int, 0, 26)
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dz == 0 && dy == 0 && dx == 0 {
					continue
				}
				out = append(out, [3]int{dz, dy, dx})
			}
		}
	}
	return out
}

func (c Connectivity) String() string {
	if c == Face {
		return "6-connected"
	}
	return "26-connected"
}
