// Command volley drives the split-archive transfer pipeline from the
// terminal: upload packages a directory and records a manifest, download
// reverses the pipeline from a manifest file.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	flag "github.com/spf13/pflag"

	"github.com/volleyfs/volley"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage:
  volley [flags] upload <dir>
  volley [flags] download <manifest.json>
  volley [flags] history

flags:
`)
	flag.PrintDefaults()
}

func main() {
	var (
		configPath   = flag.String("config", "config.json", "config file path (JSONC)")
		saveDir      = flag.String("save-dir", "", "directory for manifests and extraction targets")
		endpoint     = flag.String("endpoint", "", "remote file service base URL")
		namespace    = flag.String("namespace", "", "upload URL namespace segment")
		folderPrefix = flag.String("folder-prefix", "", "prefix of the date-partitioned Folder header")
		partSize     = flag.Int64("part-size", 0, "maximum part size in bytes")
		workDir      = flag.String("work-dir", "", "scratch directory for intermediate files")
		verbose      = flag.BoolP("verbose", "v", false, "enable debug logging")
	)
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := volley.LoadConfig(*configPath)
	if err != nil {
		logger.Error("loading config", "error", err)
		os.Exit(1)
	}
	applyFlags(&cfg, *saveDir, *endpoint, *namespace, *folderPrefix, *partSize, *workDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, *configPath, logger, flag.Arg(0), flag.Args()[1:]); err != nil {
		logger.Error("failed", "error", err)
		os.Exit(1)
	}
}

func applyFlags(cfg *volley.Config, saveDir, endpoint, namespace, folderPrefix string, partSize int64, workDir string) {
	if saveDir != "" {
		cfg.SaveDir = saveDir
	}
	if endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if namespace != "" {
		cfg.Namespace = namespace
	}
	if folderPrefix != "" {
		cfg.FolderPrefix = folderPrefix
	}
	if partSize > 0 {
		cfg.MaxPartSize = partSize
	}
	if workDir != "" {
		cfg.WorkDir = workDir
	}
}

func run(ctx context.Context, cfg volley.Config, configPath string, logger *slog.Logger, cmd string, args []string) error {
	switch cmd {
	case "upload":
		if len(args) != 1 {
			usage()
			os.Exit(2)
		}
		return runUpload(ctx, cfg, configPath, logger, args[0])
	case "download":
		if len(args) != 1 {
			usage()
			os.Exit(2)
		}
		return runDownload(ctx, cfg, logger, args[0])
	case "history":
		for _, entry := range cfg.UploadHistory {
			fmt.Println(entry)
		}
		return nil
	default:
		usage()
		os.Exit(2)
		return nil
	}
}

func runUpload(ctx context.Context, cfg volley.Config, configPath string, logger *slog.Logger, dir string) error {
	session := volley.NewSession(cfg,
		volley.WithObserver(newConsoleObserver(os.Stderr)),
		volley.WithLogger(logger),
	)
	result := <-session.StartUpload(ctx, dir)
	if result.Err != nil {
		return result.Err
	}

	// Record the manifest in the upload history so it can be found later.
	cfg.UploadHistory = append(cfg.UploadHistory, cfg.ManifestPath(result.Manifest.Title))
	if err := cfg.Save(configPath); err != nil {
		logger.Warn("saving upload history", "error", err)
	}
	return nil
}

func runDownload(ctx context.Context, cfg volley.Config, logger *slog.Logger, manifestPath string) error {
	session := volley.NewSession(cfg,
		volley.WithObserver(newConsoleObserver(os.Stderr)),
		volley.WithLogger(logger),
	)
	result := <-session.StartDownload(ctx, manifestPath)
	return result.Err
}
