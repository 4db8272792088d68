package volley

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Download reads the manifest at manifestPath, fetches every part by its
// remote reference, concatenates the parts in manifest index order, and
// extracts the merged archive into <SaveDir>/<title>_unpacked.
//
// It returns the manifest and the extraction target directory. A failure
// halts the remaining steps and returns a StepError naming the stage;
// partial local files are left on disk for inspection. An extraction
// failure (wrapping ErrCorruptArchive when the merged bytes are not a valid
// archive) aborts before any cleanup so the merged file and parts remain
// inspectable. After a successful extraction the scratch directory is
// removed best-effort.
func (s *Session) Download(ctx context.Context, manifestPath string) (*Manifest, string, error) {
	m, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, "", fail(StageReadingManifest, err)
	}
	s.obs.Log(fmt.Sprintf("manifest %q: %d parts", m.Title, len(m.Parts)))

	work, err := s.workDir()
	if err != nil {
		return nil, "", fail(StageDownloading, err)
	}

	local, err := s.downloadParts(ctx, m, work)
	if err != nil {
		return nil, "", err
	}

	merged := filepath.Join(work, m.Title+"_merged.zip")
	if err := MergeParts(ctx, local, merged); err != nil {
		return nil, "", fail(StageMerging, err)
	}
	s.obs.Log("merged all parts")

	target := filepath.Join(s.cfg.SaveDir, m.Title+"_unpacked")
	s.obs.Log("extracting to " + target)
	if err := Extract(ctx, merged, target); err != nil {
		return nil, "", fail(StageExtracting, err)
	}

	s.cleanup(work)
	s.obs.Log("download complete: " + target)
	return m, target, nil
}

// downloadParts fetches the manifest's parts strictly sequentially in
// ascending index order into the scratch directory.
func (s *Session) downloadParts(ctx context.Context, m *Manifest, work string) ([]PartFile, error) {
	local := make([]PartFile, 0, len(m.Parts))
	for i, p := range m.Parts {
		if err := ctx.Err(); err != nil {
			return nil, fail(StageDownloading, err)
		}
		name := fmt.Sprintf("%s_part%d.zip", m.Title, p.Index)
		dest := filepath.Join(work, name)
		s.obs.Log(fmt.Sprintf("downloading part %d/%d: %s", i+1, len(m.Parts), name))
		if err := s.client.Download(ctx, p.Ref, dest, s.obs.Progress); err != nil {
			return nil, fail(StageDownloading, fmt.Errorf("part %d: %w", p.Index, err))
		}
		info, err := os.Stat(dest)
		if err != nil {
			return nil, fail(StageDownloading, err)
		}
		local = append(local, PartFile{Index: p.Index, Path: dest, Size: info.Size()})
	}
	return local, nil
}
