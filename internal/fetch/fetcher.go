// Package fetch downloads and unpacks toolkit artifacts into a local cache.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"

	"cudaconf/internal/fsutil"
	"cudaconf/internal/logging"
	"cudaconf/internal/version"
)

// Source is one downloadable artifact.
type Source struct {
	Version version.Version
	URL     string
	SHA256  string
}

// Fetcher materializes artifacts below CacheDir. Each artifact is
// extracted into a directory named after the hash of its URL, so a
// changed URL never reuses a stale extraction.
type Fetcher struct {
	cacheDir string
	client   *http.Client
	logger   *logging.Logger
}

// New creates a fetcher caching below cacheDir.
func New(cacheDir string, logger *logging.Logger) *Fetcher {
	return &Fetcher{
		cacheDir: cacheDir,
		client:   &http.Client{}, // no client timeout, the caller's context bounds the pass
		logger:   logger,
	}
}

// WithClient replaces the HTTP client.
func (f *Fetcher) WithClient(c *http.Client) *Fetcher {
	f.client = c
	return f
}

// CacheKey returns the cache directory name for an artifact URL.
func CacheKey(rawURL string) string {
	sum := blake2b.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:16])
}

// Dir returns where src is (or would be) extracted.
func (f *Fetcher) Dir(src Source) string {
	return filepath.Join(f.cacheDir, "cuda-"+src.Version.String()+"-"+CacheKey(src.URL))
}

// Materialize returns the extracted directory of src, downloading it on a
// cache miss.
func (f *Fetcher) Materialize(ctx context.Context, src Source) (string, error) {
	dir := f.Dir(src)
	if fsutil.DirExists(dir) {
		f.logger.Debug("fetch.cache.hit", "Artifact already extracted", map[string]interface{}{
			"version": src.Version.String(),
			"dir":     dir,
		})
		return dir, nil
	}

	if err := fsutil.EnsureStateDirectory(f.cacheDir); err != nil {
		return "", err
	}

	f.logger.Info("fetch.download.start", "Downloading toolkit artifact", map[string]interface{}{
		"version": src.Version.String(),
		"url":     src.URL,
	})

	archive, err := f.download(ctx, src)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := os.Remove(archive); err != nil && !os.IsNotExist(err) {
			f.logger.Warn("fetch.cleanup.failed", "Failed to remove downloaded archive", map[string]interface{}{
				"path":  archive,
				"error": err.Error(),
			})
		}
	}()

	staging, err := os.MkdirTemp(f.cacheDir, ".extract-")
	if err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(staging); err != nil {
			f.logger.Warn("fetch.cleanup.failed", "Failed to remove staging directory", map[string]interface{}{
				"path":  staging,
				"error": err.Error(),
			})
		}
	}()

	if err := unpack(archive, src.URL, staging); err != nil {
		return "", fmt.Errorf("failed to unpack %s: %w", src.URL, err)
	}

	root, err := contentRoot(staging)
	if err != nil {
		return "", err
	}
	if err := os.Rename(root, dir); err != nil {
		return "", fmt.Errorf("failed to move artifact into cache: %w", err)
	}

	f.logger.Info("fetch.download.complete", "Toolkit artifact extracted", map[string]interface{}{
		"version": src.Version.String(),
		"dir":     dir,
	})
	return dir, nil
}

// download stores the archive in a temp file and verifies its checksum.
func (f *Fetcher) download(ctx context.Context, src Source) (string, error) {
	body, err := f.open(ctx, src.URL)
	if err != nil {
		return "", err
	}
	defer fsutil.CloseWithError(body.Close, f.logger, src.URL)

	tmp, err := os.CreateTemp(f.cacheDir, ".download-")
	if err != nil {
		return "", fmt.Errorf("failed to create download file: %w", err)
	}
	tmpPath := tmp.Name()

	hash := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, hash), body); err != nil {
		fsutil.CloseWithError(tmp.Close, f.logger, tmpPath)
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("download of %s failed: %w", src.URL, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close download file: %w", err)
	}

	if src.SHA256 != "" {
		computed := hex.EncodeToString(hash.Sum(nil))
		if !strings.EqualFold(computed, src.SHA256) {
			_ = os.Remove(tmpPath)
			return "", fmt.Errorf("checksum mismatch for %s: expected %s, got %s", src.URL, src.SHA256, computed)
		}
	}

	return tmpPath, nil
}

func (f *Fetcher) open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid artifact URL %q: %w", rawURL, err)
	}

	if u.Scheme == "file" {
		file, err := os.Open(filepath.FromSlash(u.Path))
		if err != nil {
			return nil, fmt.Errorf("failed to open artifact: %w", err)
		}
		return file, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download artifact: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		fsutil.CloseWithError(resp.Body.Close, f.logger, rawURL)
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// contentRoot returns the single top-level directory of an extracted
// archive, or dir itself when the archive has several top-level entries.
func contentRoot(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read staging directory: %w", err)
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dir, entries[0].Name()), nil
	}
	// Move the whole staging dir; leave an empty placeholder for the deferred cleanup.
	inner := dir + ".root"
	if err := os.Rename(dir, inner); err != nil {
		return "", fmt.Errorf("failed to stage artifact: %w", err)
	}
	if err := os.Mkdir(dir, fsutil.DefaultStatePermissions); err != nil {
		return "", fmt.Errorf("failed to stage artifact: %w", err)
	}
	return inner, nil
}
