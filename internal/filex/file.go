// Package filex holds the local file helpers the CLI needs around uploads
// and downloads.
package filex

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/lockbox/internal/common"
	"github.com/dustin/go-humanize"
)

const fallbackName = "download"

// EnsureDir creates dir (and parents) with owner-only permissions and
// returns its absolute path.
func EnsureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", dir, err)
	}

	if err := os.MkdirAll(abs, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}

	return abs, nil
}

// SafeName reduces a server supplied name to a single path element.
func SafeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(filepath.Clean("/" + name))
	if name == "/" || name == "." || name == ".." || name == "" {
		return fallbackName
	}
	return name
}

// WriteUnique writes data into dir under name, appending " (n)" before the
// extension when the name is taken. Existing files are never overwritten.
func WriteUnique(dir, name string, data []byte) (string, error) {
	name = SafeName(name)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 0; i < 1000; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		p := filepath.Join(dir, candidate)

		f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create %s: %w", p, err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(p)
			return "", fmt.Errorf("write %s: %w", p, err)
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(p)
			return "", fmt.Errorf("close %s: %w", p, err)
		}
		return p, nil
	}
	return "", fmt.Errorf("no free file name for %s in %s", name, dir)
}

// ReadLimited reads the file at path, refusing files over limit bytes
// before reading any content.
func ReadLimited(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", common.ErrValidation, path)
	}
	if fi.Size() > limit {
		return nil, fmt.Errorf("%w: %s is %s, the limit is %s", common.ErrValidation, path,
			humanize.IBytes(uint64(fi.Size())), humanize.IBytes(uint64(limit)))
	}

	b, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, fmt.Errorf("%w: %s grew past %s while reading", common.ErrValidation, path, humanize.IBytes(uint64(limit)))
	}
	return b, nil
}
