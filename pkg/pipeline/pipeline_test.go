package pipeline

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/blobstack/pkg/errors"
	"github.com/matzehuels/blobstack/pkg/synth"
	"github.com/matzehuels/blobstack/pkg/volume"
)

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{NumCells: DefaultNumCells}
	require.NoError(t, o.ValidateAndSetDefaults())
	assert.Equal(t, DefaultNumCells, o.NumCells)
	assert.Equal(t, DefaultShape, o.Shape)
	assert.Equal(t, DefaultDType, o.DType)
	assert.Equal(t, synth.DefaultParams(), o.Params)
	assert.False(t, o.Chunked())
	assert.Equal(t, 1, o.Chunks())
	assert.Equal(t, DefaultNumCells, o.CellsUsed())

	// Idempotent.
	require.NoError(t, o.ValidateAndSetDefaults())
	assert.Equal(t, DefaultNumCells, o.NumCells)
}

func TestOptionsZeroCells(t *testing.T) {
	var o Options
	require.NoError(t, o.ValidateAndSetDefaults())
	assert.Zero(t, o.NumCells)
	assert.Zero(t, o.CellsUsed())
	assert.Equal(t, DefaultShape, o.Shape)
}

func TestOptionsChunks(t *testing.T) {
	o := Options{NumCells: 10, ChunkSize: 3}
	require.NoError(t, o.ValidateAndSetDefaults())
	assert.True(t, o.Chunked())
	assert.Equal(t, 3, o.Chunks())
	assert.Equal(t, 9, o.CellsUsed())
}

func TestOptionsInvalid(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"negative cells", Options{NumCells: -1}, errors.ErrCodeInvalidInput},
		{"bad shape", Options{Shape: volume.Shape{X: 0, Y: 4, Z: 1}}, errors.ErrCodeInvalidShape},
		{"bad dtype", Options{DType: volume.DType(9)}, errors.ErrCodeInvalidDType},
		{"negative chunk", Options{ChunkSize: -2}, errors.ErrCodeInvalidInput},
		{"chunk too large", Options{NumCells: 4, ChunkSize: 5}, errors.ErrCodeInvalidInput},
		{"negative std", Options{Params: synth.Params{CellSize: [3]float64{5, 5, 1}, CellSizeStd: [3]float64{-1, 1, 0}}}, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}
}

func TestAssembleDefaults(t *testing.T) {
	st, err := Assemble(context.Background(), 10, DefaultShape, volume.Uint8, 0, synth.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, [4]int{3, 2, 104, 104}, st.Dims())
	assert.Equal(t, uint32(255), st.Channel(PrimaryChannel).Max())

	labels := st.Channel(LabelChannel)
	top := labels.Max()
	require.Positive(t, top)
	n := len(labels.Labels())
	assert.GreaterOrEqual(t, n, 1)
	assert.LessOrEqual(t, n, 10, "one marker per blob")
	seen := make(map[uint32]bool)
	for _, l := range labels.Data {
		seen[l] = true
	}
	// Watershed keeps every marker, so labels are consecutive from 1.
	for l := uint32(1); l <= top; l++ {
		assert.True(t, seen[l], "label %d missing", l)
	}
	// Labels only where the primary channel is foreground.
	for i, l := range labels.Data {
		if l != 0 {
			assert.NotZero(t, st.Channel(PrimaryChannel).Data[i])
		}
	}
}

func TestAssembleLabelCountBounded(t *testing.T) {
	for seed := uint64(0); seed < 8; seed++ {
		st, err := Assemble(context.Background(), 10, DefaultShape, volume.Uint8, seed, synth.DefaultParams())
		require.NoError(t, err)
		n := len(st.Channel(LabelChannel).Labels())
		assert.GreaterOrEqual(t, n, 1, "seed %d", seed)
		assert.LessOrEqual(t, n, 10, "seed %d", seed)
	}
}

func TestAssembleDeterministic(t *testing.T) {
	shape := volume.Shape{X: 40, Y: 32, Z: 3}
	a, err := Assemble(context.Background(), 6, shape, volume.Uint16, 42, synth.DefaultParams())
	require.NoError(t, err)
	b, err := Assemble(context.Background(), 6, shape, volume.Uint16, 42, synth.DefaultParams())
	require.NoError(t, err)
	assert.True(t, a.Equal(b))

	c, err := Assemble(context.Background(), 6, shape, volume.Uint16, 43, synth.DefaultParams())
	require.NoError(t, err)
	assert.False(t, a.Equal(c))
}

func TestAssembleZeroCells(t *testing.T) {
	shape := volume.Shape{X: 8, Y: 8, Z: 1}
	st, err := Assemble(context.Background(), 0, shape, volume.Uint8, 0, synth.DefaultParams())
	require.NoError(t, err)
	for _, ch := range st.Channels {
		assert.Zero(t, ch.Max())
	}
}

func TestChunkedSingleChunkEqualsAssemble(t *testing.T) {
	shape := volume.Shape{X: 48, Y: 40, Z: 2}
	p := synth.DefaultParams()
	want, err := Assemble(context.Background(), 5, shape, volume.Uint8, 7, p)
	require.NoError(t, err)
	got, err := Chunked(context.Background(), 5, 5, shape, volume.Uint8, 7, p)
	require.NoError(t, err)
	assert.True(t, want.Equal(got))
}

func TestChunkedMerge(t *testing.T) {
	shape := volume.Shape{X: 48, Y: 48, Z: 2}
	p := synth.DefaultParams()
	const chunkSize, lots = 3, 3

	merged, err := Chunked(context.Background(), 10, chunkSize, shape, volume.Uint8, 100, p)
	require.NoError(t, err)

	n := shape.Len()
	want0 := make([]uint32, n)
	want1 := make([]uint32, n)
	wantL := make([]uint32, n)
	var offset uint32
	var chunks []*volume.Stack
	for i := 0; i < lots; i++ {
		st, err := Assemble(context.Background(), chunkSize, shape, volume.Uint8, 100+uint64(i), p)
		require.NoError(t, err)
		chunks = append(chunks, st)
		for j := 0; j < n; j++ {
			want0[j] += st.Channel(PrimaryChannel).Data[j] / lots
			want1[j] += st.Channel(SecondaryChannel).Data[j] / lots
			if l := st.Channel(LabelChannel).Data[j]; l != 0 {
				wantL[j] = l + offset
			}
		}
		offset += st.Channel(LabelChannel).Max()
	}

	assert.Equal(t, want0, merged.Channel(PrimaryChannel).Data)
	assert.Equal(t, want1, merged.Channel(SecondaryChannel).Data)
	assert.Equal(t, wantL, merged.Channel(LabelChannel).Data)
	assert.LessOrEqual(t, merged.Channel(PrimaryChannel).Max(), uint32(255))
	assert.LessOrEqual(t, merged.Channel(LabelChannel).Max(), offset)

	// Chunk i owns the label range (lo_i, hi_i]; ranges follow each other
	// without overlap and every merged label falls in the range of the last
	// chunk that labelled its voxel.
	lo := make([]uint32, lots)
	hi := make([]uint32, lots)
	for i, st := range chunks {
		if i > 0 {
			lo[i] = hi[i-1]
		}
		hi[i] = lo[i] + st.Channel(LabelChannel).Max()
		assert.LessOrEqual(t, lo[i], hi[i])
	}
	for j, l := range merged.Channel(LabelChannel).Data {
		owner := -1
		for i, st := range chunks {
			if st.Channel(LabelChannel).Data[j] != 0 {
				owner = i
			}
		}
		if owner < 0 {
			assert.Zero(t, l)
			continue
		}
		assert.Greater(t, l, lo[owner], "voxel %d", j)
		assert.LessOrEqual(t, l, hi[owner], "voxel %d", j)
	}
}

func TestChunkedInvalid(t *testing.T) {
	shape := volume.Shape{X: 8, Y: 8, Z: 1}
	_, err := Chunked(context.Background(), 4, 5, shape, volume.Uint8, 0, synth.DefaultParams())
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	_, err = Chunked(context.Background(), 4, 0, shape, volume.Uint8, 0, synth.DefaultParams())
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	shape := volume.Shape{X: 8, Y: 8, Z: 1}

	_, err := Assemble(ctx, 2, shape, volume.Uint8, 0, synth.DefaultParams())
	assert.ErrorIs(t, err, context.Canceled)

	_, err = Chunked(ctx, 4, 2, shape, volume.Uint8, 0, synth.DefaultParams())
	assert.ErrorIs(t, err, context.Canceled)

	_, err = NewRunner(quietLogger(), nil).Execute(ctx, Options{Shape: shape})
	assert.ErrorIs(t, err, context.Canceled)
}

// recordingHooks counts pipeline events.
type recordingHooks struct {
	mu       sync.Mutex
	synth    int
	segment  int
	chunks   []int
	maxLabel uint32
}

func (h *recordingHooks) OnSynthesizeStart(context.Context, int, int) {}
func (h *recordingHooks) OnSynthesizeComplete(context.Context, int, time.Duration, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.synth++
}
func (h *recordingHooks) OnSegmentStart(context.Context, int, int) {}
func (h *recordingHooks) OnSegmentComplete(context.Context, int, int, time.Duration, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.segment++
}
func (h *recordingHooks) OnChunkComplete(_ context.Context, chunk, _ int, maxLabel uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.chunks = append(h.chunks, chunk)
	h.maxLabel = maxLabel
}

func TestRunnerExecute(t *testing.T) {
	hooks := &recordingHooks{}
	r := NewRunner(quietLogger(), hooks)

	res, err := r.Execute(context.Background(), Options{
		NumCells:  8,
		Shape:     volume.Shape{X: 48, Y: 48, Z: 2},
		Seed:      3,
		ChunkSize: 4,
	})
	require.NoError(t, err)

	_, err = uuid.Parse(res.RunID)
	assert.NoError(t, err)
	assert.Equal(t, 8, res.Stats.Cells)
	assert.Equal(t, 2, res.Stats.Chunks)
	assert.Equal(t, []int{0, 1}, hooks.chunks)
	assert.Equal(t, 2, hooks.synth)
	assert.Equal(t, 2, hooks.segment)

	labels := res.Stack.Channel(LabelChannel)
	assert.Same(t, labels, res.Labels)
	assert.Equal(t, 2, res.Regions.Channels)
	assert.Equal(t, res.Regions.Len(), res.Stats.Labels)
	for _, row := range res.Regions.Rows {
		assert.Positive(t, row.Area)
		assert.LessOrEqual(t, row.ID, hooks.maxLabel)
	}
}

func TestRunnerExecuteZeroCells(t *testing.T) {
	r := NewRunner(quietLogger(), nil)
	res, err := r.Execute(context.Background(), Options{Shape: volume.Shape{X: 16, Y: 12, Z: 2}})
	require.NoError(t, err)

	assert.Zero(t, res.Stats.Cells)
	for _, ch := range res.Stack.Channels {
		assert.Zero(t, ch.Max())
	}
	assert.Zero(t, res.Regions.Len())
	assert.Equal(t, 1, res.Stats.EmptyChunks)
	require.Len(t, res.Stats.Warnings, 1)
	assert.Equal(t, errors.ErrCodeEmptyVolume, errors.GetCode(res.Stats.Warnings[0]))
}

func TestRunnerResegment(t *testing.T) {
	r := NewRunner(quietLogger(), nil)
	res, err := r.Execute(context.Background(), Options{
		NumCells:  6,
		Shape:     volume.Shape{X: 40, Y: 40, Z: 1},
		Resegment: true,
	})
	require.NoError(t, err)
	assert.NotSame(t, res.Stack.Channel(LabelChannel), res.Labels)
	// Resegmenting never labels background.
	for i, l := range res.Labels.Data {
		if l != 0 {
			assert.NotZero(t, res.Stack.Channel(LabelChannel).Data[i])
		}
	}
	assert.GreaterOrEqual(t, uint8(res.Labels.DType), uint8(res.Stack.Channel(LabelChannel).DType))
}
