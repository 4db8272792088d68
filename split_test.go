package volley

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeArchiveBytes materializes content as a fake archive file for
// partitioning tests; Split does not care about zip structure.
func writeArchiveBytes(t *testing.T, dir string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, "unit.zip")
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func patternBytes(n int) []byte {
	content := make([]byte, n)
	for i := range content {
		content[i] = byte(i % 251)
	}
	return content
}

func TestSplitSizeBound(t *testing.T) {
	t.Parallel()

	content := patternBytes(1000)
	archivePath := writeArchiveBytes(t, t.TempDir(), content)

	parts, err := Split(context.Background(), archivePath, t.TempDir(), 400)
	require.NoError(t, err)
	require.Len(t, parts, 3)

	var total int64
	var merged []byte
	for i, p := range parts {
		assert.Equal(t, i, p.Index)
		assert.Equal(t, fmt.Sprintf("unit_part%d.zip", i), filepath.Base(p.Path))
		data, err := os.ReadFile(p.Path)
		require.NoError(t, err)
		assert.Equal(t, int64(len(data)), p.Size)
		if i < len(parts)-1 {
			assert.LessOrEqual(t, p.Size, int64(400))
		}
		total += p.Size
		merged = append(merged, data...)
	}
	assert.Equal(t, []int64{400, 400, 200}, []int64{parts[0].Size, parts[1].Size, parts[2].Size})
	assert.Equal(t, int64(len(content)), total)
	assert.Equal(t, content, merged)
}

func TestSplitDeterminism(t *testing.T) {
	t.Parallel()

	content := patternBytes(2500)
	archivePath := writeArchiveBytes(t, t.TempDir(), content)

	first, err := Split(context.Background(), archivePath, t.TempDir(), 1024)
	require.NoError(t, err)
	second, err := Split(context.Background(), archivePath, t.TempDir(), 1024)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		a, err := os.ReadFile(first[i].Path)
		require.NoError(t, err)
		b, err := os.ReadFile(second[i].Path)
		require.NoError(t, err)
		assert.Equal(t, a, b)
		assert.Equal(t, first[i].Size, second[i].Size)
	}
}

func TestSplitSinglePart(t *testing.T) {
	t.Parallel()

	content := patternBytes(100)
	archivePath := writeArchiveBytes(t, t.TempDir(), content)

	parts, err := Split(context.Background(), archivePath, t.TempDir(), DefaultMaxPartSize)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, int64(100), parts[0].Size)
}

func TestSplitInvalidMaxSize(t *testing.T) {
	t.Parallel()

	archivePath := writeArchiveBytes(t, t.TempDir(), patternBytes(10))
	_, err := Split(context.Background(), archivePath, t.TempDir(), 0)
	require.Error(t, err)
}

func TestMergeOrdersByIndex(t *testing.T) {
	t.Parallel()

	content := patternBytes(900)
	archivePath := writeArchiveBytes(t, t.TempDir(), content)
	parts, err := Split(context.Background(), archivePath, t.TempDir(), 300)
	require.NoError(t, err)
	require.Len(t, parts, 3)

	// Supply the parts in an arbitrary enumeration order; only the index
	// may determine reconstruction order.
	shuffled := []PartFile{parts[2], parts[0], parts[1]}

	dest := filepath.Join(t.TempDir(), "merged.zip")
	require.NoError(t, MergeParts(context.Background(), shuffled, dest))
	merged, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, merged)

	// Concatenating in raw slice order instead would corrupt the archive.
	var raw []byte
	for _, p := range shuffled {
		data, err := os.ReadFile(p.Path)
		require.NoError(t, err)
		raw = append(raw, data...)
	}
	assert.NotEqual(t, content, raw)
}

func TestMergeRejectsGaps(t *testing.T) {
	t.Parallel()

	content := patternBytes(600)
	archivePath := writeArchiveBytes(t, t.TempDir(), content)
	parts, err := Split(context.Background(), archivePath, t.TempDir(), 300)
	require.NoError(t, err)
	require.Len(t, parts, 2)

	parts[1].Index = 2 // simulate a missing part
	dest := filepath.Join(t.TempDir(), "merged.zip")
	err = MergeParts(context.Background(), parts, dest)
	require.Error(t, err)
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestMergeNoParts(t *testing.T) {
	t.Parallel()

	err := MergeParts(context.Background(), nil, filepath.Join(t.TempDir(), "merged.zip"))
	require.Error(t, err)
}

func TestSplitMergeRoundTripArchive(t *testing.T) {
	t.Parallel()

	// Full pipeline property: extract(merge(split(archive(dir)))) == dir.
	src := t.TempDir()
	createTestTree(t, src, testFiles())

	work := t.TempDir()
	archivePath := filepath.Join(work, "unit.zip")
	require.NoError(t, Archive(context.Background(), src, archivePath))

	parts, err := Split(context.Background(), archivePath, work, 128)
	require.NoError(t, err)
	require.Greater(t, len(parts), 1)

	merged := filepath.Join(work, "merged.zip")
	require.NoError(t, MergeParts(context.Background(), parts, merged))

	original, err := os.ReadFile(archivePath)
	require.NoError(t, err)
	mergedBytes, err := os.ReadFile(merged)
	require.NoError(t, err)
	require.True(t, bytes.Equal(original, mergedBytes))

	target := t.TempDir()
	require.NoError(t, Extract(context.Background(), merged, target))
	assert.Equal(t, readTree(t, src), readTree(t, target))
}
