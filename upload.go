package volley

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Upload archives dir, splits the archive into parts, transfers each part
// in index order, and persists the manifest linking the parts to their
// remote references.
//
// The manifest is written exactly once, after every part has succeeded; a
// failure at any step halts the remaining steps and returns a StepError
// naming the stage. Parts already uploaded when a later step fails are left
// on the server (their references appear in the session log). Scratch files
// are removed on success; cleanup failures are logged, never propagated.
func (s *Session) Upload(ctx context.Context, dir string) (*Manifest, error) {
	title := filepath.Base(filepath.Clean(dir))
	work, err := s.workDir()
	if err != nil {
		return nil, fail(StageArchiving, err)
	}

	s.obs.Log("archiving " + dir)
	archivePath := filepath.Join(work, title+".zip")
	if err := Archive(ctx, dir, archivePath); err != nil {
		return nil, fail(StageArchiving, err)
	}

	parts, err := Split(ctx, archivePath, work, s.maxPartSize())
	if err != nil {
		return nil, fail(StagePartitioning, err)
	}
	s.obs.Log(fmt.Sprintf("split into %d parts", len(parts)))

	manifestParts, err := s.uploadParts(ctx, parts)
	if err != nil {
		return nil, err
	}

	m := &Manifest{Title: title, UploadDate: time.Now(), Parts: manifestParts}
	manifestPath := s.cfg.ManifestPath(title)
	if err := m.WriteFile(manifestPath); err != nil {
		return nil, fail(StageWritingManifest, err)
	}
	s.obs.Log("manifest written: " + manifestPath)

	s.cleanup(work)
	s.obs.Log(fmt.Sprintf("upload complete: %d parts", len(m.Parts)))
	return m, nil
}

// uploadParts transfers the local parts strictly sequentially in ascending
// index order. A part discards its local file representation only through
// the workdir cleanup that follows a durably recorded manifest.
func (s *Session) uploadParts(ctx context.Context, parts []PartFile) ([]Part, error) {
	manifestParts := make([]Part, 0, len(parts))
	for i, p := range parts {
		if err := ctx.Err(); err != nil {
			return nil, fail(StageUploading, err)
		}
		name := filepath.Base(p.Path)
		s.obs.Log(fmt.Sprintf("uploading part %d/%d: %s", i+1, len(parts), name))
		res, err := s.client.Upload(ctx, p.Path, s.obs.Progress)
		if err != nil {
			return nil, fail(StageUploading, fmt.Errorf("part %d: %w", p.Index, err))
		}
		manifestParts = append(manifestParts, Part{
			Index:  p.Index,
			Title:  strings.TrimSuffix(name, filepath.Ext(name)),
			Ref:    res.FileID,
			Digest: res.Digest,
			Size:   res.Size,
		})
		s.obs.Log(fmt.Sprintf("uploaded %s -> %s", name, res.FileID))
	}
	return manifestParts, nil
}
