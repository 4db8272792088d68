package volley

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultMaxPartSize is the part size limit used when none is configured.
const DefaultMaxPartSize int64 = 400 << 20 // 400 MiB

// PartFile is one locally materialized chunk of a split archive.
type PartFile struct {
	// Index is the zero-based position of the chunk. Concatenating part
	// files in ascending index order reproduces the archive exactly.
	Index int

	Path string
	Size int64
}

// Split partitions the archive at archivePath into an ordered sequence of
// part files under destDir, each at most maxPartSize bytes except possibly
// the final part. Boundaries fall on raw byte offsets with no regard for
// the archive's internal structure, so the partition is unique for a fixed
// archive and size limit.
//
// Part files are named <base>_part<index>.zip after the archive's base
// name. On failure all created part files are removed and no sequence is
// returned.
func Split(ctx context.Context, archivePath, destDir string, maxPartSize int64) ([]PartFile, error) {
	if maxPartSize <= 0 {
		return nil, fmt.Errorf("split: invalid max part size %d", maxPartSize)
	}
	src, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return nil, err
	}
	base := strings.TrimSuffix(filepath.Base(archivePath), filepath.Ext(archivePath))

	var parts []PartFile
	success := false
	defer func() {
		if !success {
			for _, p := range parts {
				os.Remove(p.Path)
			}
		}
	}()

	remaining := info.Size()
	for index := 0; remaining > 0; index++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := min(remaining, maxPartSize)
		path := filepath.Join(destDir, fmt.Sprintf("%s_part%d.zip", base, index))
		if err := writePart(path, src, n); err != nil {
			return nil, err
		}
		parts = append(parts, PartFile{Index: index, Path: path, Size: n})
		remaining -= n
	}
	success = true
	return parts, nil
}

func writePart(path string, src io.Reader, n int64) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.CopyN(out, src, n); err != nil {
		out.Close()
		os.Remove(path)
		return fmt.Errorf("write part %s: %w", filepath.Base(path), err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

// MergeParts concatenates part files strictly in ascending Index order into
// a single archive at dest. The order of the parts slice itself is
// irrelevant; only the indices determine reconstruction order.
//
// The indices must form the contiguous set 0..N-1. On failure no file is
// left at dest.
func MergeParts(ctx context.Context, parts []PartFile, dest string) error {
	if len(parts) == 0 {
		return errors.New("merge: no parts")
	}
	ordered := make([]PartFile, len(parts))
	copy(ordered, parts)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })
	for i, p := range ordered {
		if p.Index != i {
			return fmt.Errorf("merge: part indices not contiguous: want %d, have %d", i, p.Index)
		}
	}

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

	for _, p := range ordered {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := appendPart(out, p.Path); err != nil {
			return err
		}
	}
	if err := out.Close(); err != nil {
		return err
	}
	success = true
	return nil
}

func appendPart(out io.Writer, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("merge %s: %w", filepath.Base(path), err)
	}
	return nil
}
