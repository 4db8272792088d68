// Package hashutil computes streaming content digests of files.
package hashutil

import (
	"crypto/md5" //nolint:gosec // the upload endpoint keys placement on MD5
	"io"
	"os"

	"github.com/opencontainers/go-digest"
)

// Algorithm is the digest algorithm used throughout the pipeline. The
// upload endpoint addresses content by its MD5, so that is what manifests
// carry; the digest is an integrity fingerprint and placement key, not a
// security boundary.
const Algorithm = digest.Algorithm("md5")

// DigestFile computes the content digest and byte length of the file at
// path, reading it incrementally so memory use is independent of file size.
func DigestFile(path string) (digest.Digest, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	return DigestReader(f)
}

// DigestReader computes the content digest and byte length of everything
// readable from r. It never returns a partial digest: any read error
// discards the computation.
func DigestReader(r io.Reader) (digest.Digest, int64, error) {
	h := md5.New() //nolint:gosec // see Algorithm
	n, err := io.Copy(h, r)
	if err != nil {
		return "", 0, err
	}
	return digest.NewDigest(Algorithm, h), n, nil
}
