package debpool

import (
	"crypto/sha1"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// File is what the publisher hands the pool for each package file:
// a name, the SHA-1 the file is known to have, and its bytes.
type File interface {
	Filename() string
	SHA1() (string, error)
	Open() (io.ReadCloser, error)
}

// LocalFile is a File backed by a path on the local filesystem.  The
// checksum is computed on first use unless Sum is already set.
type LocalFile struct {
	Path string
	Sum  string
}

func (f *LocalFile) Filename() string {
	return filepath.Base(f.Path)
}

func (f *LocalFile) SHA1() (sum string, err error) {
	if f.Sum == "" {
		f.Sum, err = sha1File(f.Path)
		if err != nil {
			return
		}
	}
	return f.Sum, nil
}

func (f *LocalFile) Open() (io.ReadCloser, error) {
	return os.Open(f.Path)
}

// sha1File returns the hex SHA-1 of the file at path.  Symlinks are
// followed.
func sha1File(path string) (sum string, err error) {
	fh, err := os.Open(path)
	if err != nil {
		return
	}
	defer fh.Close()
	h := sha1.New()
	_, err = io.Copy(h, fh)
	if err != nil {
		return "", errors.Wrapf(err, "hashing %s", path)
	}
	return bin2hex(h.Sum(nil)), nil
}

func bin2hex(buf []byte) string {
	return hex.EncodeToString(buf)
}

func sameSum(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
