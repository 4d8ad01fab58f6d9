package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/okfde/froide-legalaction/internal/document"
	"github.com/okfde/froide-legalaction/internal/fetcher"
	"github.com/okfde/froide-legalaction/internal/importer"
	"github.com/okfde/froide-legalaction/internal/importer/loader"
)

var loadDocumentsDir string

var loadCmd = &cobra.Command{
	Use:   "load <loader> <path>",
	Short: "Import decisions from a source",
	Long: `Import decisions from a source file or directory using the named loader.
The path may also be an HTTP(S) URL to a source index; it is downloaded first
and skipped entirely when unchanged since the last import.

Re-running a load is safe: decisions already in the database are matched by
ECLI, slug, source URL or their reference/date/court triple and merged instead
of duplicated. See "legalaction loaders" for available loaders.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		l, err := loader.NewRegistry().Get(args[0])
		if err != nil {
			return err
		}

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close() //nolint:errcheck

		if err := s.Migrate(ctx); err != nil {
			return err
		}

		documentsDir := loadDocumentsDir
		if documentsDir == "" {
			documentsDir = cfg.Import.DocumentsDir
		}
		docs, err := document.NewStore(documentsDir)
		if err != nil {
			return err
		}

		f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:  cfg.Import.UserAgent,
			Timeout:    time.Duration(cfg.Import.FetchTimeoutSec) * time.Second,
			MaxRetries: cfg.Import.FetchRetries,
		})

		source := args[1]
		if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
			local, err := fetchSource(ctx, f, source, documentsDir)
			if err != nil {
				return err
			}
			if local == "" {
				fmt.Println("Source unchanged, nothing to import")
				return nil
			}
			defer os.Remove(local) //nolint:errcheck
			source = local
		}

		zap.L().Info("starting import",
			zap.String("loader", l.Name()),
			zap.String("path", args[1]),
		)

		report, err := importer.New(s, docs, f).Run(ctx, l, source)
		if err != nil {
			return eris.Wrap(err, "load")
		}

		fmt.Printf("Imported %d decisions: %d created, %d merged, %d rejected\n",
			report.Total(), report.Created, report.Merged, report.Rejected)
		return nil
	},
}

// fetchSource downloads a remote source index to a temp file, using the ETag
// cached from the last import to skip unchanged indexes. Returns "" when the
// index has not changed.
func fetchSource(ctx context.Context, f fetcher.Fetcher, rawURL, cacheDir string) (string, error) {
	cachePath := filepath.Join(cacheDir, "etags.json")
	etags := readETags(cachePath)

	body, etag, changed, err := f.DownloadIfChanged(ctx, rawURL, etags[rawURL])
	if err != nil {
		return "", eris.Wrapf(err, "fetch source %s", rawURL)
	}
	if !changed {
		return "", nil
	}
	defer body.Close() //nolint:errcheck

	tmp, err := os.CreateTemp("", "legalaction-source-*")
	if err != nil {
		return "", eris.Wrap(err, "create source temp file")
	}
	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", eris.Wrapf(err, "write source %s", rawURL)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", eris.Wrap(err, "close source temp file")
	}

	if etag != "" {
		etags[rawURL] = etag
		writeETags(cachePath, etags)
	}
	return tmp.Name(), nil
}

func readETags(path string) map[string]string {
	etags := make(map[string]string)
	data, err := os.ReadFile(path)
	if err != nil {
		return etags
	}
	if err := json.Unmarshal(data, &etags); err != nil {
		return make(map[string]string)
	}
	return etags
}

func writeETags(path string, etags map[string]string) {
	data, err := json.Marshal(etags)
	if err != nil {
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		zap.L().Warn("etag cache write failed", zap.String("path", path), zap.Error(err))
	}
}

func init() {
	loadCmd.Flags().StringVar(&loadDocumentsDir, "documents-dir", "", "document store directory (default from config)")
	rootCmd.AddCommand(loadCmd)
}
