package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volleyfs/volley/internal/hashutil"
)

func writePartFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "unit_part0.zip")
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

// assertMonotonic verifies a progress sequence is non-decreasing and ends
// at 100.
func assertMonotonic(t *testing.T, seq []int) {
	t.Helper()
	require.NotEmpty(t, seq)
	assert.True(t, sort.IntsAreSorted(seq), "progress not monotonic: %v", seq)
	assert.Equal(t, 100, seq[len(seq)-1])
	assert.GreaterOrEqual(t, seq[0], 0)
}

func TestUpload(t *testing.T) {
	t.Parallel()

	content := []byte("part content for upload")
	dgst, _, err := hashutil.DigestReader(strings.NewReader(string(content)))
	require.NoError(t, err)

	var gotPath, gotDigest, gotFolder, gotField, gotFilename string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		gotPath = r.URL.Path
		gotDigest = r.Header.Get("XueHai-MD5")
		gotFolder = r.Header.Get("Folder")

		require.NoError(t, r.ParseMultipartForm(1<<20))
		for field, headers := range r.MultipartForm.File {
			gotField = field
			require.Len(t, headers, 1)
			gotFilename = headers[0].Filename
			f, err := headers[0].Open()
			require.NoError(t, err)
			gotBody, err = io.ReadAll(f)
			require.NoError(t, err)
			f.Close()
		}
		fmt.Fprintf(w, `{"uploadFileDTO":{"fileId":"fid-123"}}`)
	}))
	t.Cleanup(server.Close)

	c := New(server.URL, WithNamespace("NS100"), WithFolderPrefix("folderpfx"))
	path := writePartFile(t, content)

	var seq []int
	res, err := c.Upload(context.Background(), path, func(p int) { seq = append(seq, p) })
	require.NoError(t, err)

	assert.Equal(t, "fid-123", res.FileID)
	assert.Equal(t, dgst, res.Digest)
	assert.Equal(t, int64(len(content)), res.Size)

	assert.Equal(t, "/file/upload/NS100/"+dgst.Encoded(), gotPath)
	assert.Equal(t, dgst.Encoded(), gotDigest)
	assert.True(t, strings.HasPrefix(gotFolder, "folderpfx/"), "folder header %q", gotFolder)
	assert.Len(t, strings.TrimPrefix(gotFolder, "folderpfx/"), 8)
	assert.Equal(t, "files", gotField)
	assert.Equal(t, "unit_part0.zip", gotFilename)
	assert.Equal(t, content, gotBody)

	assertMonotonic(t, seq)
}

func TestUploadMissingFileID(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"ok": true}`)
	}))
	t.Cleanup(server.Close)

	c := New(server.URL)
	_, err := c.Upload(context.Background(), writePartFile(t, []byte("x")), nil)
	require.ErrorIs(t, err, ErrBadResponse)
}

func TestUploadStatusError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"msg":"quota exceeded"}`)
	}))
	t.Cleanup(server.Close)

	c := New(server.URL)
	_, err := c.Upload(context.Background(), writePartFile(t, []byte("x")), nil)
	require.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestUploadMissingFile(t *testing.T) {
	t.Parallel()

	c := New("http://127.0.0.1:0")
	_, err := c.Upload(context.Background(), filepath.Join(t.TempDir(), "missing"), nil)
	require.Error(t, err)
}

func TestDownload(t *testing.T) {
	t.Parallel()

	content := make([]byte, 100_000)
	for i := range content {
		content[i] = byte(i)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", fmt.Sprint(len(content)))
		_, _ = w.Write(content)
	}))
	t.Cleanup(server.Close)

	dest := filepath.Join(t.TempDir(), "part0.zip")
	var seq []int
	c := New(server.URL)
	require.NoError(t, c.Download(context.Background(), server.URL, dest, func(p int) { seq = append(seq, p) }))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assertMonotonic(t, seq)
}

func TestDownloadUnknownLength(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Flushing before the body suppresses Content-Length.
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte("stream of unknown length"))
	}))
	t.Cleanup(server.Close)

	dest := filepath.Join(t.TempDir(), "part0.zip")
	var seq []int
	c := New(server.URL)
	require.NoError(t, c.Download(context.Background(), server.URL, dest, func(p int) { seq = append(seq, p) }))

	// Without a declared total, completion is reported only at the end.
	assert.Equal(t, []int{100}, seq)
}

func TestDownloadStatusError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	dest := filepath.Join(t.TempDir(), "part0.zip")
	c := New(server.URL)
	err := c.Download(context.Background(), server.URL, dest, nil)
	require.ErrorIs(t, err, ErrUnexpectedStatus)
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDownloadTruncatedBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "1000")
		_, _ = w.Write([]byte("short"))
	}))
	t.Cleanup(server.Close)

	dest := filepath.Join(t.TempDir(), "part0.zip")
	c := New(server.URL)
	err := c.Download(context.Background(), server.URL, dest, nil)
	require.Error(t, err)

	// No partial file may be left where a caller could mistake it for a
	// complete part.
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}
