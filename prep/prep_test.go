package prep_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/molscreen/molscreen/prep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two-residue fragment with atoms spanning x 10..20, y 0..8, z -5..5.
const receptorPDBQT = `REMARK test receptor
ATOM      1  N   THR A 315      10.000   0.000  -5.000  1.00  0.00     0.123 N
ATOM      2  CA  THR A 315      15.000   4.000   0.000  1.00  0.00     0.123 C
ATOM      3  C   GLU A 268      20.000   8.000   5.000  1.00  0.00     0.123 C
HETATM    4  O   HOH A 402      12.000   2.000   1.000  1.00  0.00     0.123 O
`

func writeReceptor(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "receptor.pdbqt")
	require.NoError(t, os.WriteFile(path, []byte(receptorPDBQT), 0o644))

	return path
}

func validConfig(receptor string) prep.Config {
	return prep.Config{
		Receptor:   receptor,
		Center:     [3]float64{15, 4, 0},
		BoxSize:    [3]float64{20, 20, 20},
		Forcefield: prep.ForcefieldVina,
		Docking:    prep.DockingRigid,
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*prep.Config)
		wantErr bool
	}{
		{name: "valid rigid", mutate: func(c *prep.Config) {}},
		{name: "box too large", mutate: func(c *prep.Config) { c.BoxSize[1] = 31 }, wantErr: true},
		{name: "box too small", mutate: func(c *prep.Config) { c.BoxSize[0] = 0.5 }, wantErr: true},
		{name: "bad receptor extension", mutate: func(c *prep.Config) { c.Receptor = "receptor.mol2" }, wantErr: true},
		{name: "bad forcefield", mutate: func(c *prep.Config) { c.Forcefield = "amber" }, wantErr: true},
		{name: "bad docking mode", mutate: func(c *prep.Config) { c.Docking = "loose" }, wantErr: true},
		{
			name: "flexible without sidechains",
			mutate: func(c *prep.Config) {
				c.Docking = prep.DockingFlexible
			},
			wantErr: true,
		},
		{
			name: "too many sidechains",
			mutate: func(c *prep.Config) {
				c.Docking = prep.DockingFlexible
				c.Sidechains = []string{"A1", "A2", "A3", "A4", "A5", "A6", "A7"}
			},
			wantErr: true,
		},
		{
			name: "flexible within limit",
			mutate: func(c *prep.Config) {
				c.Docking = prep.DockingFlexible
				c.Sidechains = []string{"THR315"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig("receptor.pdbqt")
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckReceptor(t *testing.T) {
	t.Parallel()

	receptor := writeReceptor(t)

	t.Run("center inside bounds", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, prep.CheckReceptor(validConfig(receptor)))
	})

	t.Run("center outside bounds", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig(receptor)
		cfg.Center = [3]float64{99, 4, 0}
		assert.Error(t, prep.CheckReceptor(cfg))
	})

	t.Run("sidechain exists", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig(receptor)
		cfg.Docking = prep.DockingFlexible
		cfg.Sidechains = []string{"THR315", "GLU268"}
		assert.NoError(t, prep.CheckReceptor(cfg))
	})

	t.Run("sidechain missing", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig(receptor)
		cfg.Docking = prep.DockingFlexible
		cfg.Sidechains = []string{"LYS999"}
		assert.Error(t, prep.CheckReceptor(cfg))
	})

	t.Run("missing receptor file", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig(filepath.Join(t.TempDir(), "nope.pdbqt"))
		assert.Error(t, prep.CheckReceptor(cfg))
	})

	t.Run("no atoms", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "empty.pdbqt")
		require.NoError(t, os.WriteFile(path, []byte("REMARK nothing here\n"), 0o644))
		assert.Error(t, prep.CheckReceptor(validConfig(path)))
	})
}

func TestWriteVinaConfig(t *testing.T) {
	t.Parallel()

	cfg := validConfig("receptor.pdbqt")
	path := filepath.Join(t.TempDir(), "config.config")
	require.NoError(t, prep.WriteVinaConfig(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "center_x = 15\ncenter_y = 4\ncenter_z = 0\nsize_x = 20\nsize_y = 20\nsize_z = 20\n", string(data))
}

func TestWorkspacePrepareAndClean(t *testing.T) {
	t.Parallel()

	ws := prep.Workspace{Root: t.TempDir()}

	// Prepare twice: the second run must clear the first one's leftovers.
	require.NoError(t, ws.Prepare())
	stale := filepath.Join(ws.PoseDir(), "output_lig-1")
	require.NoError(t, os.WriteFile(stale, []byte("pose"), 0o644))
	require.NoError(t, ws.Prepare())

	assert.NoFileExists(t, stale)
	assert.DirExists(t, ws.ConfigDir())
	assert.DirExists(t, ws.PoseDir())
	assert.DirExists(t, ws.LigandsDir())

	ws.Clean()
	assert.NoDirExists(t, ws.ConfigDir())

	// Cleaning an already-clean workspace is fine.
	ws.Clean()
}
