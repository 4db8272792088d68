package volley

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/volleyfs/volley/internal/fileops"
	"github.com/volleyfs/volley/internal/hashutil"
)

// manifestTimeFormat is the human-readable timestamp format used for the
// upload_date field.
const manifestTimeFormat = "2006-01-02 15:04:05"

// Part is one chunk of a split archive as recorded in a manifest.
type Part struct {
	// Index defines reconstruction order. Within a manifest the indices
	// are exactly 0..N-1 with no gaps or duplicates.
	Index int

	// Title is the part's logical name (the part file name without
	// extension).
	Title string

	// Ref is the remote reference issued by the upload endpoint. It is
	// resolvable to a byte stream by the transfer client.
	Ref string

	// Digest is the content digest of the part's bytes, computed once at
	// upload time.
	Digest digest.Digest

	// Size is the exact byte length of the part.
	Size int64
}

// Manifest is the durable record linking one archived unit to its ordered
// parts. It is the sole artifact a download session consumes; once
// persisted it is never modified.
type Manifest struct {
	// Title is the logical name of the archived unit, derived from the
	// source directory name.
	Title string

	// UploadDate is the timestamp of upload completion.
	UploadDate time.Time

	// Parts is ordered by ascending Index.
	Parts []Part
}

// Wire format. Unknown fields are ignored on read for forward
// compatibility; the named fields are required.
type manifestJSON struct {
	GameTitle  string       `json:"game_title"`
	UploadDate string       `json:"upload_date"`
	Volumes    []volumeJSON `json:"volumes"`
}

type volumeJSON struct {
	Index *int   `json:"index"`
	Title string `json:"title"`
	Path  string `json:"path"`
	MD5   string `json:"md5"`
	Size  *int64 `json:"size"`
}

// WriteFile persists the manifest as indented JSON at path. The write is
// all-or-nothing: the content goes to a temp file first and is renamed into
// place, so a failed write leaves no manifest visible at path.
func (m *Manifest) WriteFile(path string) error {
	doc := manifestJSON{
		GameTitle:  m.Title,
		UploadDate: m.UploadDate.Format(manifestTimeFormat),
		Volumes:    make([]volumeJSON, 0, len(m.Parts)),
	}
	for _, p := range m.Parts {
		index := p.Index
		size := p.Size
		doc.Volumes = append(doc.Volumes, volumeJSON{
			Index: &index,
			Title: p.Title,
			Path:  p.Ref,
			MD5:   p.Digest.Encoded(),
			Size:  &size,
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return fileops.WriteFileAtomic(path, append(data, '\n'), 0o644)
}

// LoadManifest reads and validates a manifest from path. Parts are returned
// sorted by ascending index regardless of their order in the JSON array.
// Missing or malformed required fields, or an index set that is not exactly
// 0..N-1, yield an error wrapping ErrManifestFormat.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc manifestJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestFormat, err)
	}
	if doc.GameTitle == "" {
		return nil, fmt.Errorf("%w: missing game_title", ErrManifestFormat)
	}
	if len(doc.Volumes) == 0 {
		return nil, fmt.Errorf("%w: no volumes", ErrManifestFormat)
	}

	m := &Manifest{Title: doc.GameTitle, Parts: make([]Part, 0, len(doc.Volumes))}
	// upload_date is informational; a missing or unparseable value is not
	// a format error.
	if t, err := time.ParseInLocation(manifestTimeFormat, doc.UploadDate, time.Local); err == nil {
		m.UploadDate = t
	}

	for i, v := range doc.Volumes {
		p, err := v.part()
		if err != nil {
			return nil, fmt.Errorf("%w: volume %d: %v", ErrManifestFormat, i, err)
		}
		m.Parts = append(m.Parts, p)
	}
	sort.Slice(m.Parts, func(i, j int) bool { return m.Parts[i].Index < m.Parts[j].Index })
	for i, p := range m.Parts {
		if p.Index != i {
			return nil, fmt.Errorf("%w: part indices are not exactly 0..%d", ErrManifestFormat, len(m.Parts)-1)
		}
	}
	return m, nil
}

func (v volumeJSON) part() (Part, error) {
	switch {
	case v.Index == nil:
		return Part{}, errors.New("missing index")
	case *v.Index < 0:
		return Part{}, fmt.Errorf("negative index %d", *v.Index)
	case v.Path == "":
		return Part{}, errors.New("missing path")
	case v.MD5 == "":
		return Part{}, errors.New("missing md5")
	case v.Size == nil:
		return Part{}, errors.New("missing size")
	case *v.Size < 0:
		return Part{}, fmt.Errorf("negative size %d", *v.Size)
	}
	return Part{
		Index:  *v.Index,
		Title:  v.Title,
		Ref:    v.Path,
		Digest: digest.NewDigestFromEncoded(hashutil.Algorithm, v.MD5),
		Size:   *v.Size,
	}, nil
}
