// Package pdf downloads paper PDFs under a size limit and extracts their text.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ryosukesatoh/daily-arxiv/internal/logging"
	"github.com/ryosukesatoh/daily-arxiv/internal/retry"
)

// ErrTooLarge is returned when a PDF exceeds the configured size limit.
var ErrTooLarge = errors.New("pdf: file exceeds size limit")

// Downloader stores PDFs in a transient directory.
type Downloader struct {
	client   *http.Client
	dir      string
	maxBytes int64
	retry    retry.Config
	logger   *slog.Logger
}

// NewDownloader limits each file to maxBytes. Zero or less disables the limit.
func NewDownloader(dir string, maxBytes int64, retryCfg retry.Config, logger *slog.Logger) *Downloader {
	return &Downloader{
		client:   &http.Client{Timeout: 2 * time.Minute},
		dir:      dir,
		maxBytes: maxBytes,
		retry:    retryCfg,
		logger:   logging.OrDiscard(logger).With("component", "pdf"),
	}
}

// Download saves the PDF of paper id and returns its path. The caller removes
// the file with Remove once done. An oversized file is never left on disk.
func (d *Downloader) Download(ctx context.Context, id, pdfURL string) (string, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("pdf: create dir %s: %w", d.dir, err)
	}
	path := filepath.Join(d.dir, fileName(id))

	err := retry.WithBackoff(ctx, d.retry, func(ctx context.Context) error {
		return d.fetch(ctx, pdfURL, path)
	})
	if err != nil {
		os.Remove(path)
		if errors.Is(err, ErrTooLarge) {
			return "", ErrTooLarge
		}
		return "", err
	}

	d.log().Debug("downloaded pdf", "id", id, "path", path)
	return path, nil
}

func (d *Downloader) fetch(ctx context.Context, pdfURL, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return retry.Permanent(fmt.Errorf("pdf: failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", "daily-arxiv/1.0")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("pdf: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &retry.StatusError{Service: "pdf", StatusCode: resp.StatusCode}
	}

	if d.maxBytes > 0 && resp.ContentLength > d.maxBytes {
		d.log().Warn("pdf too large", "url", pdfURL, "content_length", resp.ContentLength, "limit", d.maxBytes)
		return retry.Permanent(ErrTooLarge)
	}

	f, err := os.Create(path)
	if err != nil {
		return retry.Permanent(fmt.Errorf("pdf: create file: %w", err))
	}

	var body io.Reader = resp.Body
	if d.maxBytes > 0 {
		body = io.LimitReader(resp.Body, d.maxBytes+1)
	}
	n, err := io.Copy(f, body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("pdf: write %s: %w", path, err)
	}
	if d.maxBytes > 0 && n > d.maxBytes {
		os.Remove(path)
		d.log().Warn("pdf exceeded limit while streaming", "url", pdfURL, "limit", d.maxBytes)
		return retry.Permanent(ErrTooLarge)
	}
	return nil
}

// Remove deletes a downloaded file, ignoring files that are already gone.
func (d *Downloader) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("pdf: remove %s: %w", path, err)
	}
	return nil
}

func (d *Downloader) log() *slog.Logger {
	if d.logger == nil {
		return logging.Discard()
	}
	return d.logger
}

// fileName maps old-style ids such as "hep-th/9901001" to a flat name.
func fileName(id string) string {
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(id) + ".pdf"
}
