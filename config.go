package volley

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"

	"github.com/volleyfs/volley/internal/fileops"
	"github.com/volleyfs/volley/transfer"
)

// Config holds the settings a session runs with plus the persisted upload
// history. It is passed explicitly to the session; nothing in the pipeline
// reads ambient process state.
type Config struct {
	// SaveDir is where manifests are written after upload and where
	// extraction targets are created after download.
	SaveDir string `json:"default_save_dir"`

	// WorkDir hosts per-session scratch directories for intermediate
	// archive and part files. Empty means the system temp directory.
	WorkDir string `json:"work_dir,omitempty"`

	// Endpoint is the base URL of the remote file service.
	Endpoint string `json:"endpoint"`

	// Namespace is the fixed namespace segment of the upload URL.
	Namespace string `json:"namespace,omitempty"`

	// FolderPrefix prefixes the date-partitioned Folder header.
	FolderPrefix string `json:"folder_prefix,omitempty"`

	// MaxPartSize caps the size of each archive part in bytes.
	MaxPartSize int64 `json:"max_part_size,omitempty"`

	// UploadHistory lists the manifest paths of completed uploads,
	// oldest first.
	UploadHistory []string `json:"upload_history"`
}

// DefaultEndpoint is the remote file service used when none is configured.
const DefaultEndpoint = "http://filesoss.yunzuoye.net/XHFileServer"

// DefaultConfig returns the configuration used in the absence of a config
// file.
func DefaultConfig() Config {
	return Config{
		SaveDir:      ".",
		Endpoint:     DefaultEndpoint,
		Namespace:    transfer.DefaultNamespace,
		FolderPrefix: transfer.DefaultFolderPrefix,
		MaxPartSize:  DefaultMaxPartSize,
	}
}

// LoadConfig reads the config file at path. A missing file yields the
// defaults; zero-valued fields in an existing file are filled from the
// defaults. The file may contain comments and trailing commas (JSONC).
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.SaveDir == "" {
		c.SaveDir = d.SaveDir
	}
	if c.Endpoint == "" {
		c.Endpoint = d.Endpoint
	}
	if c.Namespace == "" {
		c.Namespace = d.Namespace
	}
	if c.FolderPrefix == "" {
		c.FolderPrefix = d.FolderPrefix
	}
	if c.MaxPartSize <= 0 {
		c.MaxPartSize = d.MaxPartSize
	}
}

// Save persists the config atomically as indented JSON.
func (c Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return fileops.WriteFileAtomic(path, append(data, '\n'), 0o644)
}

// ManifestPath returns where the manifest for an archived unit with the
// given title is persisted.
func (c Config) ManifestPath(title string) string {
	return filepath.Join(c.SaveDir, title+".json")
}
