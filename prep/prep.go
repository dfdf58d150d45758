// Package prep validates the docking setup before any work is dispatched.
// It mirrors the screening portal's input rules: a failure here aborts the
// whole job before steady state, no partial results are produced.
package prep

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	MaxBoxSize    = 30
	MinBoxSize    = 1
	MaxSidechains = 6

	ForcefieldVina = "vina"
	ForcefieldAD4  = "ad4"

	DockingRigid    = "rigid"
	DockingFlexible = "flexible"
)

// Config describes one docking setup.
type Config struct {
	Receptor       string
	Center         [3]float64
	BoxSize        [3]float64
	Forcefield     string
	Docking        string
	Sidechains     []string
	Exhaustiveness int
	Poses          int
}

// Flexible reports whether flexible-sidechain docking was requested.
func (c Config) Flexible() bool {
	return c.Docking == DockingFlexible
}

// Validate checks the parts of the config that need no file access.
func (c Config) Validate() error {
	for _, size := range c.BoxSize {
		if size < MinBoxSize || size > MaxBoxSize {
			return fmt.Errorf("box size %v is outside the bounds (%d-%d)", size, MinBoxSize, MaxBoxSize)
		}
	}

	ext := filepath.Ext(c.Receptor)
	if ext != ".pdb" && ext != ".pdbqt" {
		return errors.New("receptor must be a .pdb or .pdbqt file")
	}

	if c.Forcefield != ForcefieldVina && c.Forcefield != ForcefieldAD4 {
		return fmt.Errorf("unknown forcefield %q", c.Forcefield)
	}

	if c.Docking != DockingRigid && c.Docking != DockingFlexible {
		return fmt.Errorf("unknown docking mode %q", c.Docking)
	}

	if c.Flexible() {
		if len(c.Sidechains) == 0 {
			return errors.New("flexible docking requires sidechains")
		}
		if len(c.Sidechains) > MaxSidechains {
			return fmt.Errorf("too many sidechains specified (max: %d)", MaxSidechains)
		}
	}

	return nil
}

// Bounds is the receptor's extent per axis.
type Bounds struct {
	Min [3]float64
	Max [3]float64
}

// Contains reports whether the point lies within the bounds on every axis.
func (b Bounds) Contains(p [3]float64) bool {
	for i := range p {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}

	return true
}

// CheckReceptor parses the receptor PDBQT and verifies that the grid center
// sits inside the protein and that every requested flexible sidechain
// actually exists in it.
func CheckReceptor(cfg Config) error {
	f, err := os.Open(cfg.Receptor)
	if err != nil {
		return fmt.Errorf("failed to open receptor: %w", err)
	}
	defer f.Close()

	bounds, sidechains, err := parseReceptor(f)
	if err != nil {
		return err
	}

	if !bounds.Contains(cfg.Center) {
		return fmt.Errorf("grid center %v is not within receptor bounds [%v, %v]", cfg.Center, bounds.Min, bounds.Max)
	}

	if cfg.Flexible() {
		for _, sc := range cfg.Sidechains {
			if !sidechains[sc] {
				return fmt.Errorf("sidechain %q not found in receptor", sc)
			}
		}
	}

	return nil
}

// parseReceptor reads ATOM/HETATM records using the fixed PDB column layout:
// x in columns 31-38, y in 39-46, z in 47-54, residue name in 18-20 and
// residue sequence number in 23-26.
func parseReceptor(r io.Reader) (Bounds, map[string]bool, error) {
	var (
		bounds     Bounds
		seen       bool
		sidechains = make(map[string]bool)
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "ATOM") && !strings.HasPrefix(line, "HETATM") {
			continue
		}
		if len(line) < 54 {
			continue
		}

		var p [3]float64
		for i, span := range [][2]int{{30, 38}, {38, 46}, {46, 54}} {
			v, err := strconv.ParseFloat(strings.TrimSpace(line[span[0]:span[1]]), 64)
			if err != nil {
				return Bounds{}, nil, fmt.Errorf("malformed coordinate in receptor: %w", err)
			}
			p[i] = v
		}

		if !seen {
			bounds.Min, bounds.Max = p, p
			seen = true
		} else {
			for i := range p {
				if p[i] < bounds.Min[i] {
					bounds.Min[i] = p[i]
				}
				if p[i] > bounds.Max[i] {
					bounds.Max[i] = p[i]
				}
			}
		}

		sidechains[strings.TrimSpace(line[17:20])+strings.TrimSpace(line[22:26])] = true
	}
	if err := scanner.Err(); err != nil {
		return Bounds{}, nil, err
	}
	if !seen {
		return Bounds{}, nil, errors.New("receptor contains no ATOM or HETATM records")
	}

	return bounds, sidechains, nil
}

// WriteVinaConfig writes the grid center and box size as the key = value
// file the docking engine consumes.
func WriteVinaConfig(cfg Config, path string) error {
	var sb strings.Builder
	keys := []string{"center_x", "center_y", "center_z"}
	for i, k := range keys {
		fmt.Fprintf(&sb, "%s = %v\n", k, cfg.Center[i])
	}
	keys = []string{"size_x", "size_y", "size_z"}
	for i, k := range keys {
		fmt.Fprintf(&sb, "%s = %v\n", k, cfg.BoxSize[i])
	}

	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

// Workspace is the on-disk layout of one job.
type Workspace struct {
	Root string
}

// ConfigDir, PoseDir and ResultsDir locate the job's scratch directories.
func (w Workspace) ConfigDir() string  { return filepath.Join(w.Root, "configs") }
func (w Workspace) PoseDir() string    { return filepath.Join(w.Root, "output", "pdbqt") }
func (w Workspace) ResultsDir() string { return filepath.Join(w.Root, "output", "results") }
func (w Workspace) LigandsDir() string { return filepath.Join(w.ResultsDir(), "ligands") }

// VinaConfigPath locates the generated docking parameter file.
func (w Workspace) VinaConfigPath() string {
	return filepath.Join(w.ConfigDir(), "vina_config.txt")
}

// SortedScoresPath and AllScoresPath locate the score listings left behind
// by a finished job: the retained best-K and the full archive.
func (w Workspace) SortedScoresPath() string {
	return filepath.Join(w.ResultsDir(), "sorted_scores.txt")
}

func (w Workspace) AllScoresPath() string {
	return filepath.Join(w.ResultsDir(), "sorted_scores_all.txt")
}

// Prepare creates the directory layout, removing leftovers from a previous
// run first. Removal of absent paths is not an error.
func (w Workspace) Prepare() error {
	w.Clean()

	for _, dir := range []string{w.ConfigDir(), w.PoseDir(), w.LigandsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	return nil
}

// Clean removes the job's scratch directories, ignoring absence.
func (w Workspace) Clean() {
	os.RemoveAll(filepath.Join(w.Root, "output"))
	os.RemoveAll(w.ConfigDir())
}
