package segment

import (
	"container/heap"

	"github.com/matzehuels/blobstack/pkg/errors"
	"github.com/matzehuels/blobstack/pkg/volume"
)

// Watershed floods surface from markers with a priority queue, lowest value
// first, restricted to mask. Neighbours are 6-connected and ties are
// resolved first-in first-out, so the result is deterministic. Voxels that no
// marker can reach stay 0.
//
// Every marker voxel must lie inside mask.
func Watershed(surface *volume.Field, markers *volume.Volume, mask *volume.Mask) (*volume.Volume, error) {
	s := mask.Shape
	if err := volume.CheckSameShape(s, surface.Shape); err != nil {
		return nil, err
	}
	if err := volume.CheckSameShape(s, markers.Shape); err != nil {
		return nil, err
	}

	out := markers.Clone()
	q := &floodQueue{}
	var age uint64
	for i, m := range out.Data {
		if m == 0 {
			continue
		}
		if !mask.Data[i] {
			z, y, x := s.Coords(i)
			return nil, errors.New(errors.ErrCodeInvalidInput, "marker %d at (z=%d, y=%d, x=%d) lies outside the mask", m, z, y, x)
		}
		heap.Push(q, floodItem{priority: surface.Data[i], age: age, index: i})
		age++
	}

	nbrs := Face.offsets()
	for q.Len() > 0 {
		it := heap.Pop(q).(floodItem)
		id := out.Data[it.index]
		z, y, x := s.Coords(it.index)
		for _, o := range nbrs {
			nz, ny, nx := z+o[0], y+o[1], x+o[2]
			if !s.Contains(nz, ny, nx) {
				continue
			}
			j := s.Index(nz, ny, nx)
			if !mask.Data[j] || out.Data[j] != 0 {
				continue
			}
			out.Data[j] = id
			heap.Push(q, floodItem{priority: surface.Data[j], age: age, index: j})
			age++
		}
	}
	return out, nil
}

type floodItem struct {
	priority float64
	age      uint64
	index    int
}

// floodQueue is a min-heap on (priority, age).
type floodQueue []floodItem

func (q floodQueue) Len() int { return len(q) }

func (q floodQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority < q[j].priority
	}
	return q[i].age < q[j].age
}

func (q floodQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *floodQueue) Push(x any) { *q = append(*q, x.(floodItem)) }

func (q *floodQueue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}
