package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

// Download resolves the URL-shaped remote reference to a byte stream and
// writes it to dest in bounded-size blocks. When the response declares a
// Content-Length the progress callback tracks the percentage of bytes
// received; otherwise completion is reported only at end of stream.
//
// A network failure or non-success status aborts the operation and removes
// any partial file at dest, so a caller never mistakes a truncated download
// for a complete part.
func (c *Client) Download(ctx context.Context, url, dest string, progress ProgressFunc) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
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

	c.log().Debug("downloading part", "url", url, "dest", dest, "length", resp.ContentLength)
	if err := c.streamBody(resp, out, progress); err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	success = true
	notify(progress, 100)
	return nil
}

func (c *Client) streamBody(resp *http.Response, out io.Writer, progress ProgressFunc) error {
	total := resp.ContentLength
	var done int64
	last := 0
	buf := make([]byte, copyBufSize)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return werr
			}
			done += int64(n)
			if total > 0 {
				if percent := int(done * 100 / total); percent > last {
					last = percent
					notify(progress, percent)
				}
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading response body: %w", err)
		}
	}
}
