package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"

	"github.com/volleyfs/volley/internal/hashutil"
)

// UploadResult describes a completed upload.
type UploadResult struct {
	// FileID is the server-issued remote reference for the content.
	FileID string

	// Digest is the content digest the request was keyed by.
	Digest digest.Digest

	// Size is the byte length of the uploaded file.
	Size int64
}

// uploadResponse is the endpoint's success body. FileID is carried in a
// nested object; a pointer distinguishes a missing object from an empty one.
type uploadResponse struct {
	UploadFileDTO *struct {
		FileID string `json:"fileId"`
	} `json:"uploadFileDTO"`
	Msg string `json:"msg"`
}

// Upload streams the file at path to the endpoint as a multipart request
// keyed by the file's content digest, invoking progress as bytes go out.
//
// Any non-200 status, network failure, or response body missing
// uploadFileDTO.fileId aborts the upload with a distinct error; there is no
// retry and no partial credit for partially streamed bytes. Concurrent
// uploads of identical content are collapsed into one request.
func (c *Client) Upload(ctx context.Context, path string, progress ProgressFunc) (*UploadResult, error) {
	dgst, size, err := hashutil.DigestFile(path)
	if err != nil {
		return nil, err
	}

	v, err, _ := c.uploads.Do(dgst.String(), func() (any, error) {
		return c.doUpload(ctx, path, dgst, size, progress)
	})
	if err != nil {
		return nil, err
	}
	return v.(*UploadResult), nil
}

func (c *Client) doUpload(ctx context.Context, path string, dgst digest.Digest, size int64, progress ProgressFunc) (*UploadResult, error) {
	body, contentType := c.multipartBody(path, size, progress)
	defer body.Close()

	url := fmt.Sprintf("%s/file/upload/%s/%s", c.endpoint, c.namespace, dgst.Encoded())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set(headerDigest, dgst.Encoded())
	req.Header.Set(headerFolder, c.folderPrefix+"/"+c.now().Format("20060102"))
	req.Header.Set("Content-Type", contentType)

	c.log().Debug("uploading part", "file", filepath.Base(path), "digest", dgst.Encoded(), "size", size)
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", filepath.Base(path), err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var parsed uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if parsed.UploadFileDTO == nil || parsed.UploadFileDTO.FileID == "" {
		return nil, fmt.Errorf("%w: missing uploadFileDTO.fileId", ErrBadResponse)
	}

	notify(progress, 100)
	return &UploadResult{FileID: parsed.UploadFileDTO.FileID, Digest: dgst, Size: size}, nil
}

// multipartBody builds a streamed multipart/form-data body carrying the
// file under the fixed form field, counting file bytes against size for
// progress reporting.
func (c *Client) multipartBody(path string, size int64, progress ProgressFunc) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		f, err := os.Open(path)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		defer f.Close()

		part, err := mw.CreateFormFile(uploadField, filepath.Base(path))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		counter := &progressReader{r: f, total: size, progress: progress}
		if _, err := io.Copy(part, counter); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	return pr, mw.FormDataContentType()
}

// progressReader reports read progress as a 0-100 percentage of total,
// emitting only increases so the sequence stays monotonic.
type progressReader struct {
	r        io.Reader
	total    int64
	done     int64
	last     int
	progress ProgressFunc
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 && p.total > 0 {
		p.done += int64(n)
		if percent := int(p.done * 100 / p.total); percent > p.last {
			p.last = percent
			notify(p.progress, percent)
		}
	}
	return n, err
}

func notify(progress ProgressFunc, percent int) {
	if progress != nil {
		progress(percent)
	}
}

// statusError turns a non-success response into an error, including the
// server's msg field when the body carries one.
func statusError(resp *http.Response) error {
	var parsed struct {
		Msg string `json:"msg"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&parsed); err == nil && parsed.Msg != "" {
		return fmt.Errorf("%w: %s: %s", ErrUnexpectedStatus, resp.Status, parsed.Msg)
	}
	return fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
}
