package job

import (
	"archive/tar"
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/molscreen/molscreen/prep"
	"github.com/molscreen/molscreen/result"
)

const combinedPosesName = "combined_docked_ligands.pdbqt"

// WriteScores writes records as one "item score" line each, in the order
// given.
func WriteScores(path string, records []result.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create score listing: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, r := range records {
		fmt.Fprintf(w, "%s %.4f\n", r.ItemID, r.Score)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write score listing: %w", err)
	}

	return f.Close()
}

// IsolateOutput moves the retained ligands' pose files out of the scratch
// pose directory into the results area, concatenates them into one
// combined file and packs the lot into a tarball. Poses the scoring engine
// never produced are skipped; pose output is best-effort all the way down.
func IsolateOutput(ws prep.Workspace, retained []result.Record) error {
	for _, r := range retained {
		name := r.ItemID + ".pdbqt"
		src := filepath.Join(ws.PoseDir(), name)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := os.Rename(src, filepath.Join(ws.LigandsDir(), name)); err != nil {
			return fmt.Errorf("failed to isolate pose %s: %w", r.ItemID, err)
		}
	}

	if err := combinePoses(ws, retained); err != nil {
		return err
	}

	return packLigands(ws)
}

// combinePoses concatenates the isolated pose files in retained order.
func combinePoses(ws prep.Workspace, retained []result.Record) error {
	out, err := os.Create(filepath.Join(ws.ResultsDir(), combinedPosesName))
	if err != nil {
		return fmt.Errorf("failed to create combined pose file: %w", err)
	}
	defer out.Close()

	for _, r := range retained {
		src := filepath.Join(ws.LigandsDir(), r.ItemID+".pdbqt")
		data, err := os.ReadFile(src)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}

			return fmt.Errorf("failed to read pose %s: %w", r.ItemID, err)
		}
		if _, err := out.Write(data); err != nil {
			return fmt.Errorf("failed to append pose %s: %w", r.ItemID, err)
		}
	}

	return out.Close()
}

// packLigands tars and gzips the isolated ligand directory next to it.
func packLigands(ws prep.Workspace) error {
	f, err := os.Create(filepath.Join(ws.ResultsDir(), "docked_ligands.tar.gz"))
	if err != nil {
		return fmt.Errorf("failed to create ligand tarball: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	err = filepath.Walk(ws.LigandsDir(), func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(ws.ResultsDir(), path)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}

		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(tw, src)

		return err
	})
	if err != nil {
		return fmt.Errorf("failed to pack ligand tarball: %w", err)
	}

	if err := tw.Close(); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}

	return f.Close()
}

// Reset wipes a job's workspace so the next run starts clean. Missing
// paths are fine.
func Reset(ws prep.Workspace) {
	ws.Clean()
}
