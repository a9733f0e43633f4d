// Package regions summarizes a label volume as a table of regions.
//
// [Measure] computes one [Row] per distinct non-zero label: its voxel count,
// centroid and the mean of every intensity channel over the region. Tables
// export as tab-separated text ([WriteCSV]), as a SQLite file
// ([WriteSQLite]) and as a region adjacency graph ([Adjacency], [ToDOT],
// [RenderSVG]).
package regions

import (
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/matzehuels/blobstack/pkg/errors"
	"github.com/matzehuels/blobstack/pkg/volume"
)

// Row is the summary of one labelled region.
type Row struct {
	ID   uint32 `json:"id"`
	Area int    `json:"area"`
	// Centroid is the mean voxel position in (z, y, x) order.
	Centroid [3]float64 `json:"centroid"`
	// Means holds the mean intensity of each channel, in channel order.
	Means []float64 `json:"means"`
}

// Table holds one row per region, sorted by ID.
type Table struct {
	Channels int   `json:"channels"`
	Rows     []Row `json:"rows"`
}

// Len returns the number of regions.
func (t *Table) Len() int { return len(t.Rows) }

// Lookup returns the row with the given label.
func (t *Table) Lookup(id uint32) (Row, bool) {
	i, ok := slices.BinarySearchFunc(t.Rows, id, func(r Row, id uint32) int {
		switch {
		case r.ID < id:
			return -1
		case r.ID > id:
			return 1
		}
		return 0
	})
	if !ok {
		return Row{}, false
	}
	return t.Rows[i], true
}

// Measure builds the region table of labels over the given intensity
// channels. Every channel must have the shape of labels.
func Measure(labels *volume.Volume, channels ...*volume.Volume) (*Table, error) {
	for _, c := range channels {
		if err := volume.CheckSameShape(labels.Shape, c.Shape); err != nil {
			return nil, err
		}
	}

	ids := labels.Labels()
	index := make(map[uint32]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	// Per region: voxel positions, then per-channel samples.
	voxels := make([][]int, len(ids))
	for i, l := range labels.Data {
		if l == 0 {
			continue
		}
		r := index[l]
		voxels[r] = append(voxels[r], i)
	}

	t := &Table{Channels: len(channels), Rows: make([]Row, len(ids))}
	var samples []float64
	for r, id := range ids {
		row := Row{ID: id, Area: len(voxels[r]), Means: make([]float64, len(channels))}
		var cz, cy, cx float64
		for _, i := range voxels[r] {
			z, y, x := labels.Shape.Coords(i)
			cz += float64(z)
			cy += float64(y)
			cx += float64(x)
		}
		n := float64(row.Area)
		row.Centroid = [3]float64{cz / n, cy / n, cx / n}

		for c, ch := range channels {
			samples = samples[:0]
			for _, i := range voxels[r] {
				samples = append(samples, float64(ch.Data[i]))
			}
			row.Means[c] = stat.Mean(samples, nil)
		}
		t.Rows[r] = row
	}
	return t, nil
}

// validate rejects tables whose rows disagree with the channel count.
func (t *Table) validate() error {
	for _, r := range t.Rows {
		if len(r.Means) != t.Channels {
			return errors.New(errors.ErrCodeInvalidInput, "region %d has %d means, table has %d channels", r.ID, len(r.Means), t.Channels)
		}
	}
	return nil
}
