package fetch

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// unpack extracts archive into dir. The compression is chosen from the
// URL suffix.
func unpack(archive, name, dir string) error {
	file, err := os.Open(filepath.Clean(archive))
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
		dec, err := zstd.NewReader(file)
		if err != nil {
			return fmt.Errorf("zstd.NewReader failed: %w", err)
		}
		defer dec.Close()
		return extractTar(dec, dir)
	case strings.HasSuffix(lower, ".tar.lz4"):
		return extractTar(lz4.NewReader(file), dir)
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		gz, err := gzip.NewReader(file)
		if err != nil {
			return fmt.Errorf("gzip.NewReader failed: %w", err)
		}
		defer func() { _ = gz.Close() }()
		return extractTar(gz, dir)
	case strings.HasSuffix(lower, ".tar"):
		return extractTar(file, dir)
	default:
		return fmt.Errorf("unsupported archive format: %s", name)
	}
}

func extractTar(r io.Reader, dir string) error {
	root := filepath.Clean(dir)
	tr := tar.NewReader(r)

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("tar read failed: %w", err)
		}

		if header.Typeflag == tar.TypeXGlobalHeader || strings.HasPrefix(filepath.Base(header.Name), "._") {
			continue
		}

		target, err := within(root, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeEntry(target, tr, os.FileMode(header.Mode).Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if filepath.IsAbs(header.Linkname) {
				return fmt.Errorf("invalid symlink target: '%s' -> '%s'", header.Name, header.Linkname)
			}
			if _, err := within(root, filepath.Join(filepath.Dir(header.Name), header.Linkname)); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if err := os.Symlink(header.Linkname, target); err != nil {
				return err
			}
		default:
			// Device nodes, fifos and hard links have no use in a toolkit bundle.
		}
	}
}

// within joins name onto root and rejects paths escaping it.
func within(root, name string) (string, error) {
	target := filepath.Join(root, name)
	if target != root && !strings.HasPrefix(target, root+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid file path: '%s'", name)
	}
	return target, nil
}

func writeEntry(path string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil { // #nosec G110 -- archives come from the configured catalogue
		_ = out.Close()
		return err
	}
	return out.Close()
}
