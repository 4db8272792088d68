// Package transfer implements the HTTP client that moves archive parts to
// and from the remote file endpoint.
//
// Uploads are content-addressed: the part's MD5 digest keys both the upload
// URL and the XueHai-MD5 header, so identical content lands at the same
// remote location. Downloads resolve an opaque URL-shaped reference to a
// byte stream. Each call is stateless given its inputs; the client retains
// nothing between calls beyond the HTTP connection pool.
package transfer

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// Defaults matching the remote file service.
const (
	// DefaultNamespace is the fixed namespace segment of the upload URL.
	DefaultNamespace = "CA104004"

	// DefaultFolderPrefix prefixes the date-partitioned Folder header.
	DefaultFolderPrefix = "yunketang"
)

const (
	headerDigest = "XueHai-MD5"
	headerFolder = "Folder"

	// uploadField is the multipart form field the endpoint expects the
	// file under.
	uploadField = "files"

	copyBufSize = 32 * 1024
)

// Sentinel errors.
var (
	// ErrUnexpectedStatus is returned when the endpoint answers with a
	// non-success HTTP status.
	ErrUnexpectedStatus = errors.New("transfer: unexpected response status")

	// ErrBadResponse is returned when a success response body does not
	// carry the expected uploadFileDTO.fileId identifier.
	ErrBadResponse = errors.New("transfer: malformed upload response")
)

// ProgressFunc receives a transfer percentage, monotonically non-decreasing
// from 0 to 100 within a single call. A nil ProgressFunc is valid.
type ProgressFunc func(percent int)

// Client talks to the remote file endpoint. The zero value is not usable;
// construct with New.
type Client struct {
	endpoint     string
	httpc        *http.Client
	namespace    string
	folderPrefix string
	logger       *slog.Logger
	now          func() time.Time

	// uploads deduplicates concurrent uploads of identical content: the
	// endpoint is content-addressed, so the result is the same either way.
	uploads singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) {
		if httpc != nil {
			c.httpc = httpc
		}
	}
}

// WithNamespace sets the namespace segment of the upload URL.
func WithNamespace(namespace string) Option {
	return func(c *Client) {
		c.namespace = namespace
	}
}

// WithFolderPrefix sets the prefix of the date-partitioned Folder header.
func WithFolderPrefix(prefix string) Option {
	return func(c *Client) {
		c.folderPrefix = prefix
	}
}

// WithLogger sets the logger used for operational details.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Client for the endpoint base URL, e.g.
// "http://filesoss.yunzuoye.net/XHFileServer".
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:     strings.TrimRight(endpoint, "/"),
		httpc:        http.DefaultClient,
		namespace:    DefaultNamespace,
		folderPrefix: DefaultFolderPrefix,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// log returns the logger, falling back to a discard logger if nil.
func (c *Client) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.logger
}
