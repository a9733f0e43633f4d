package roi

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/blobstack/pkg/errors"
	"github.com/matzehuels/blobstack/pkg/volume"
)

// plane builds a one-plane label volume from rows of labels.
func plane(rows ...[]uint32) *volume.Volume {
	s := volume.Shape{X: len(rows[0]), Y: len(rows), Z: 1}
	v := volume.New(s, volume.Uint8)
	for y, row := range rows {
		copy(v.Data[y*s.X:], row)
	}
	return v
}

func TestTraceShapes(t *testing.T) {
	tests := []struct {
		name   string
		labels *volume.Volume
		want   []image.Point
	}{
		{
			name:   "single pixel",
			labels: plane([]uint32{0, 0, 0}, []uint32{0, 1, 0}, []uint32{0, 0, 0}),
			want:   []image.Point{{1, 1}},
		},
		{
			name: "square",
			labels: plane(
				[]uint32{0, 0, 0, 0},
				[]uint32{0, 1, 1, 0},
				[]uint32{0, 1, 1, 0},
				[]uint32{0, 0, 0, 0},
			),
			want: []image.Point{{1, 1}, {2, 1}, {2, 2}, {1, 2}},
		},
		{
			name:   "line",
			labels: plane([]uint32{0, 0, 0, 0, 0}, []uint32{0, 1, 1, 1, 0}),
			want:   []image.Point{{1, 1}, {2, 1}, {3, 1}, {2, 1}},
		},
		{
			name:   "diagonal",
			labels: plane([]uint32{1, 0}, []uint32{0, 1}),
			want:   []image.Point{{0, 0}, {1, 1}},
		},
		{
			name: "ring ignores hole",
			labels: plane(
				[]uint32{1, 1, 1},
				[]uint32{1, 0, 1},
				[]uint32{1, 1, 1},
			),
			want: []image.Point{{0, 0}, {1, 0}, {2, 0}, {2, 1}, {2, 2}, {1, 2}, {0, 2}, {0, 1}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Trace(tt.labels)
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].Points)
		})
	}
}

func TestTraceOrdering(t *testing.T) {
	s := volume.Shape{X: 5, Y: 1, Z: 2}
	labels := &volume.Volume{Shape: s, DType: volume.Uint8, Data: []uint32{
		2, 0, 1, 0, 2, // z=0: label 2 has two parts
		1, 1, 0, 0, 0, // z=1
	}}
	got := Trace(labels)
	require.Len(t, got, 4)

	type key struct {
		label uint32
		z     int
		part  int
	}
	var keys []key
	for _, c := range got {
		keys = append(keys, key{c.Label, c.Z, c.Part})
	}
	assert.Equal(t, []key{{1, 0, 0}, {1, 1, 0}, {2, 0, 0}, {2, 0, 1}}, keys)
	assert.Equal(t, "L0002-Z000-1", got[3].Name())
}

func TestEncodeDecode(t *testing.T) {
	c := Contour{
		Label:  7,
		Z:      3,
		Points: []image.Point{{10, 20}, {14, 20}, {14, 25}, {10, 25}},
	}
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, c, c.Name()))

	data := buf.Bytes()
	assert.Equal(t, "Iout", string(data[:4]))
	assert.Equal(t, []byte{0, 228}, data[4:6])
	assert.Equal(t, 64+4*4+64+2*len(c.Name()), len(data))

	roi, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, c.Points, roi.Points)
	assert.Equal(t, 4, roi.Position)
	assert.Equal(t, "L0007-Z003-0", roi.Name)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("not a roi")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat))
}

func TestExportSet(t *testing.T) {
	labels := plane(
		[]uint32{1, 1, 0, 2},
		[]uint32{1, 1, 0, 2},
	)
	contours := Trace(labels)
	root := filepath.Join(t.TempDir(), "out")

	zipPath, err := ExportSet(root, "ROIset1", contours)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "ROIset1.zip"), zipPath)

	for i := range contours {
		_, err := os.Stat(filepath.Join(root, "ROIset1", FileName(i)))
		assert.NoError(t, err)
	}

	rois, err := ReadSet(zipPath)
	require.NoError(t, err)
	require.Len(t, rois, 2)
	assert.Equal(t, contours[0].Points, rois[0].Points)
	assert.Equal(t, contours[1].Name(), rois[1].Name)

	_, err = ExportSet(root, "ROIset1", contours)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeOutputExists))
}

func TestExportSetInvalidName(t *testing.T) {
	_, err := ExportSet(t.TempDir(), "../escape", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidPath))
}
