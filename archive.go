package volley

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"

	"github.com/volleyfs/volley/internal/fileops"
)

// Archive zips every regular file under dir into a single archive at dest.
//
// Entries are stored under their path relative to dir, so extraction
// reproduces the original relative layout regardless of the absolute path
// used at archive time. Entries are written in lexical walk order, making
// the archive deterministic for a fixed tree. Empty directories are not
// preserved. Symbolic links and other non-regular files are skipped.
//
// On any failure the partial archive is removed from dest so a caller can
// never mistake it for complete.
func Archive(ctx context.Context, dir, dest string) error {
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	success := false
	defer func() {
		if !success {
			out.Close()
			os.Remove(dest)
		}
	}()

	zw := zip.NewWriter(out)
	err = fs.WalkDir(os.DirFS(dir), ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		return writeArchiveEntry(zw, dir, path, info)
	})
	if err != nil {
		zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	success = true
	return nil
}

// writeArchiveEntry streams one regular file into the archive under its
// slash-separated relative path.
func writeArchiveEntry(zw *zip.Writer, dir, path string, info fs.FileInfo) error {
	hdr := &zip.FileHeader{
		Name:     path,
		Method:   zip.Deflate,
		Modified: info.ModTime(),
	}
	hdr.SetMode(info.Mode().Perm())

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	f, err := os.Open(filepath.Join(dir, filepath.FromSlash(path)))
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("archive %s: %w", path, err)
	}
	return nil
}

// Extract unpacks every entry of the zip archive at zipPath into targetDir,
// creating intermediate directories as needed. Each file is written
// atomically via a temp file and rename. Entry names that escape targetDir
// are rejected.
//
// If the archive cannot be opened as a zip, Extract returns an error
// wrapping ErrCorruptArchive: merged bytes that do not form a valid archive
// signal a missing or reordered part upstream.
func Extract(ctx context.Context, zipPath, targetDir string) error {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}
	defer zr.Close()

	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return err
	}
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := extractEntry(f, targetDir); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(f *zip.File, targetDir string) error {
	if !fs.ValidPath(f.Name) {
		return fmt.Errorf("%w: unsafe entry path %q", ErrCorruptArchive, f.Name)
	}
	dest := filepath.Join(targetDir, filepath.FromSlash(f.Name))

	if f.FileInfo().IsDir() {
		return os.MkdirAll(dest, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: open entry %s: %v", ErrCorruptArchive, f.Name, err)
	}
	defer rc.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	if err := fileops.WriteReaderAtomic(dest, rc, mode); err != nil {
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	return nil
}
