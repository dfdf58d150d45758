package molscreen_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	molscreen "github.com/molscreen/molscreen"
	"github.com/molscreen/molscreen/prep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
[job]
id = "kinase-2026"
library = "ligand_db"
output_root = "runs/kinase"
workers = 8
outputs = 500
slack = 50
drain_timeout = "2m"

[docking]
receptor = "receptor.pdbqt"
center = [15.0, 4.0, 0.0]
box_size = [20.0, 20.0, 20.0]
forcefield = "vina"
docking = "flexible"
sidechains = ["THR315", "GLU268"]
exhaustiveness = 8
poses = 5
`

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "molscreen.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	cfg, err := molscreen.LoadConfig(path)
	require.NoError(t, err)

	jc, err := cfg.JobConfig()
	require.NoError(t, err)
	assert.Equal(t, "kinase-2026", jc.ID)
	assert.Equal(t, 8, jc.Workers)
	assert.Equal(t, 500, jc.Outputs)
	assert.Equal(t, 2*time.Minute, jc.DrainTimeout)

	dc, err := cfg.DockingConfig()
	require.NoError(t, err)
	assert.Equal(t, [3]float64{15, 4, 0}, dc.Center)
	assert.Equal(t, prep.DockingFlexible, dc.Docking)
	assert.Equal(t, []string{"THR315", "GLU268"}, dc.Sidechains)
	require.NoError(t, dc.Validate())
}

func TestLoadConfigErrors(t *testing.T) {
	t.Parallel()

	_, err := molscreen.LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[job\n"), 0o644))
	_, err = molscreen.LoadConfig(path)
	assert.Error(t, err)
}

func TestDockingConfigRejectsBadVectors(t *testing.T) {
	t.Parallel()

	cfg := &molscreen.Config{
		Docking: molscreen.DockingConfig{
			Center:  []float64{1, 2},
			BoxSize: []float64{20, 20, 20},
		},
	}

	_, err := cfg.DockingConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "center must have exactly 3 components")
}

func TestJobConfigRejectsBadDrainTimeout(t *testing.T) {
	t.Parallel()

	cfg := &molscreen.Config{Job: molscreen.JobConfig{DrainTimeout: "soon"}}

	_, err := cfg.JobConfig()
	assert.Error(t, err)
}
