package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/blobstack/pkg/errors"
	stackio "github.com/matzehuels/blobstack/pkg/io"
	"github.com/matzehuels/blobstack/pkg/regions"
	"github.com/matzehuels/blobstack/pkg/roi"
	"github.com/matzehuels/blobstack/pkg/volume"
)

// runCLI executes the root command with args and returns what it printed to
// stdout and to the log.
func runCLI(t *testing.T, args ...string) (out, logs string, err error) {
	t.Helper()
	var outBuf, logBuf bytes.Buffer
	prev := stdout
	stdout = &outBuf
	defer func() { stdout = prev }()

	c := New(&logBuf, LogInfo)
	defer c.Close()
	root := c.RootCommand()
	root.SetArgs(append([]string{"--verbose"}, args...))
	root.SetOut(&outBuf)
	root.SetErr(&outBuf)
	err = root.ExecuteContext(context.Background())
	return outBuf.String(), logBuf.String(), err
}

func TestGenerateAllOutputs(t *testing.T) {
	dir := t.TempDir()
	stack := filepath.Join(dir, "out", "s.tif")

	out, _, err := runCLI(t, "generate",
		"-n", "4", "--shape", "32,32,2", "--seed", "5",
		"-o", stack,
		"--csv", filepath.Join(dir, "r.csv"),
		"--sqlite", filepath.Join(dir, "r.db"),
		"--graph", filepath.Join(dir, "g.dot"),
		"--roi-dir", filepath.Join(dir, "rois"),
		"--view", "png", "--view-out", filepath.Join(dir, "png"),
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Generated stack")

	s, meta, err := stackio.ImportTIFF(stack)
	require.NoError(t, err)
	assert.Equal(t, [4]int{3, 2, 32, 32}, s.Dims())
	assert.NotEmpty(t, meta.RunID)

	csvData, err := os.ReadFile(filepath.Join(dir, "r.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(csvData), "ID\tInt0\tInt1\n"))

	table, err := regions.ReadSQLite(context.Background(), filepath.Join(dir, "r.db"))
	require.NoError(t, err)
	assert.Equal(t, strings.Count(string(csvData), "\n")-1, table.Len())

	dot, err := os.ReadFile(filepath.Join(dir, "g.dot"))
	require.NoError(t, err)
	assert.Contains(t, string(dot), "graph regions {")

	rois, err := roi.ReadSet(filepath.Join(dir, "rois", "s.zip"))
	require.NoError(t, err)
	assert.NotEmpty(t, rois)

	for c := 0; c < 3; c++ {
		assert.FileExists(t, filepath.Join(dir, "png", fmt.Sprintf("s_c%d.png", c)))
	}
}

func TestGenerateChunked(t *testing.T) {
	dir := t.TempDir()
	stack := filepath.Join(dir, "c.tif")
	_, _, err := runCLI(t, "generate", "-n", "6", "--chunk-size", "3", "--shape", "24,24,1", "--dtype", "uint16", "--compress", "-o", stack)
	require.NoError(t, err)

	s, _, err := stackio.ImportTIFF(stack)
	require.NoError(t, err)
	assert.Equal(t, volume.Uint16, s.Channel(0).DType)

	_, _, err = runCLI(t, "generate", "-n", "2", "--chunk-size", "3", "--shape", "24,24,1", "-o", stack)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), "got %v", err)
}

func TestGenerateZeroCells(t *testing.T) {
	stack := filepath.Join(t.TempDir(), "empty.tif")
	out, _, err := runCLI(t, "generate", "-n", "0", "--shape", "16,16,1", "-o", stack)
	require.NoError(t, err)
	assert.Contains(t, out, "no positive maximum")

	s, _, err := stackio.ImportTIFF(stack)
	require.NoError(t, err)
	for _, ch := range s.Channels {
		assert.Zero(t, ch.Max())
	}
}

func TestGenerateFromConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "run.toml")
	cfg := `
[synth]
num_cells = 3
shape = [24, 20, 1]
seed = 2

[output]
path = "from-config.tif"

[regions]
csv = "regions.csv"
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	_, _, err := runCLI(t, "--config", cfgPath, "generate")
	require.NoError(t, err)
	s, _, err := stackio.ImportTIFF(filepath.Join(dir, "from-config.tif"))
	require.NoError(t, err)
	assert.Equal(t, [4]int{3, 1, 20, 24}, s.Dims())
	assert.FileExists(t, filepath.Join(dir, "regions.csv"))

	// Flags override the file.
	override := filepath.Join(dir, "override.tif")
	_, _, err = runCLI(t, "--config", cfgPath, "generate", "--shape", "16,16,2", "-o", override)
	require.NoError(t, err)
	s, _, err = stackio.ImportTIFF(override)
	require.NoError(t, err)
	assert.Equal(t, [4]int{3, 2, 16, 16}, s.Dims())
}

func TestInvalidConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("synth:\n  dtype: float64\n"), 0o644))
	_, _, err := runCLI(t, "--config", cfgPath, "generate")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidConfig), "got %v", err)
}

func TestRegionsAndROICommands(t *testing.T) {
	dir := t.TempDir()
	stack := filepath.Join(dir, "s.tif")
	_, _, err := runCLI(t, "generate", "-n", "5", "--shape", "40,40,2", "-o", stack)
	require.NoError(t, err)

	out, _, err := runCLI(t, "regions", stack, "--limit", "2", "--graph", filepath.Join(dir, "g.dot"))
	require.NoError(t, err)
	assert.Contains(t, out, "regions in")
	assert.Contains(t, out, "Int0")
	assert.FileExists(t, filepath.Join(dir, "g.dot"))

	_, _, err = runCLI(t, "regions", stack, "--resegment")
	require.NoError(t, err)

	_, _, err = runCLI(t, "roi", stack, "-d", dir, "--name", "set")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "set.zip"))

	_, _, err = runCLI(t, "roi", stack, "-d", dir, "--name", "set")
	assert.True(t, errors.Is(err, errors.ErrCodeOutputExists), "got %v", err)
}

func TestRegionsMissingStack(t *testing.T) {
	_, _, err := runCLI(t, "regions", filepath.Join(t.TempDir(), "nope.tif"))
	assert.True(t, errors.Is(err, errors.ErrCodeFileNotFound), "got %v", err)
}

func TestViewCommand(t *testing.T) {
	dir := t.TempDir()
	stack := filepath.Join(dir, "s.tif")
	_, _, err := runCLI(t, "generate", "-n", "2", "--shape", "16,16,1", "-o", stack)
	require.NoError(t, err)

	_, _, err = runCLI(t, "view", stack, "--backend", "html", "--out", filepath.Join(dir, "page.html"))
	require.NoError(t, err)
	page, err := os.ReadFile(filepath.Join(dir, "page.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "<html")

	_, _, err = runCLI(t, "view", stack, "--backend", "none")
	assert.NoError(t, err)

	_, _, err = runCLI(t, "view", stack, "--backend", "vr")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), "got %v", err)
}

func TestLogFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "logs", "run.log")
	_, logs, err := runCLI(t, "--log-file", logPath, "generate", "-n", "2", "--shape", "16,16,1", "-o", filepath.Join(dir, "s.tif"))
	require.NoError(t, err)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Generated 2 cells")
	assert.Contains(t, logs, "Generated 2 cells")
}

func TestVersionAndCompletion(t *testing.T) {
	out, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "blobstack version:")

	out, _, err = runCLI(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "blobstack")

	_, _, err = runCLI(t, "completion", "tcsh")
	assert.Error(t, err)
}

// =============================================================================
// Terminal viewer
// =============================================================================

func viewerStack() *volume.Stack {
	s := volume.Shape{X: 6, Y: 4, Z: 3}
	a := volume.New(s, volume.Uint8)
	b := volume.New(s, volume.Uint8)
	l := volume.New(s, volume.Uint8)
	a.Set(2, 1, 1, 255)
	l.Set(0, 0, 0, 3)
	return &volume.Stack{Channels: []*volume.Volume{a, b, l}}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestStackViewerNavigation(t *testing.T) {
	var m tea.Model = NewStackViewer(viewerStack())
	steps := []struct {
		key     string
		channel int
		z       int
	}{
		{"right", 0, 1},
		{"right", 0, 2},
		{"right", 0, 2}, // clamped
		{"left", 0, 1},
		{"tab", 1, 1},
		{"j", 2, 1},
		{"j", 0, 1}, // wraps
		{"k", 2, 1},
	}
	for _, st := range steps {
		m, _ = m.Update(key(st.key))
		v := m.(StackViewer)
		assert.Equal(t, st.channel, v.Channel, "after %s", st.key)
		assert.Equal(t, st.z, v.Z, "after %s", st.key)
	}

	m, _ = m.Update(key("p"))
	assert.True(t, m.(StackViewer).Projection)
	assert.Contains(t, m.View(), "max over z")

	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestStackViewerRender(t *testing.T) {
	v := NewStackViewer(viewerStack())
	v.Z = 2
	lines := strings.Split(strings.TrimRight(v.render(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, " @    ", lines[1])
	assert.Equal(t, "      ", lines[0])

	v.Z = 0
	assert.Equal(t, "      \n      \n      \n      \n", v.render())

	// Downsampled to fit the window, keeping the brightest pixel.
	v.Z = 2
	v.Width, v.Height = 3, 2
	assert.Equal(t, "@  \n   \n", v.render())
}

func TestRegionTable(t *testing.T) {
	tbl := &regions.Table{Channels: 2, Rows: []regions.Row{
		{ID: 1, Area: 1200, Centroid: [3]float64{0.5, 3, 4}, Means: []float64{10, 20}},
		{ID: 2, Area: 3, Centroid: [3]float64{1, 1, 1}, Means: []float64{1, 2}},
	}}
	out := regionTable(tbl, 1)
	assert.Contains(t, out, "Int1")
	assert.Contains(t, out, "1,200")
	assert.Contains(t, out, "1 more regions")
	assert.NotContains(t, regionTable(tbl, 0), "more regions")
}
