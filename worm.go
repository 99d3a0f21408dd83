package debpool

import (
	"crypto/sha1"
	"hash"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// TempPrefix starts the name of every file being written into the pool.
// Operators can delete leftovers matching it after a crash.
const TempPrefix = "temp-download."

// file modes
const (
	DirMode  = 0755
	FileMode = 0644
)

// WORM is a write-once file.  Its bytes are staged in the temp
// directory and renamed onto Path by Close, so Path never holds a
// partial file.  Temp and Path must be on the same filesystem.
type WORM struct {
	Path   string
	Temp   string
	Expect string // expected hex SHA-1, or "" to skip the check
	mode   os.FileMode
	fh     *os.File
	hash   hash.Hash
	n      int64
}

// CreateWORM opens a temp file that will become path on Close.  path
// must not exist yet.
func CreateWORM(temp, path string, mode os.FileMode) (file *WORM, err error) {
	if lexists(path) {
		corrupt(path, "refusing to write over an existing file")
	}
	file = &WORM{Path: path, Temp: temp, mode: mode, hash: sha1.New()}
	file.fh, err = os.CreateTemp(temp, TempPrefix+"*")
	if err != nil {
		return nil, errors.Wrapf(err, "creating temp file for %s", path)
	}
	return
}

// Write supports the io.Writer interface.
func (file *WORM) Write(data []byte) (n int, err error) {
	if file.fh == nil {
		return 0, errors.Errorf("%s: write after close", file.Path)
	}
	n, err = file.fh.Write(data)
	file.hash.Write(data[:n])
	file.n += int64(n)
	return
}

// Size returns the number of bytes written so far.
func (file *WORM) Size() int64 {
	return file.n
}

// Sum returns the hex SHA-1 of the bytes written so far.
func (file *WORM) Sum() string {
	return bin2hex(file.hash.Sum(nil))
}

// Abort discards the temp file.  Path is left untouched.
func (file *WORM) Abort() {
	if file.fh == nil {
		return
	}
	name := file.fh.Name()
	file.fh.Close()
	file.fh = nil
	cleanup(name)
}

// Close finishes the write: syncs, checks the checksum, sets the mode,
// and renames the temp file onto Path.  On error the temp file is
// removed.
func (file *WORM) Close() (err error) {
	if file.fh == nil {
		return errors.Errorf("%s: already closed", file.Path)
	}
	name := file.fh.Name()
	defer func() {
		if err != nil {
			cleanup(name)
		}
	}()

	err = file.fh.Sync()
	if err != nil {
		file.fh.Close()
		file.fh = nil
		return errors.Wrapf(err, "syncing %s", name)
	}
	err = file.fh.Close()
	file.fh = nil
	if err != nil {
		return errors.Wrapf(err, "closing %s", name)
	}

	if file.Expect != "" && !sameSum(file.Expect, file.Sum()) {
		return &HashMismatchError{Path: file.Path, Expected: file.Expect, Found: file.Sum()}
	}

	err = os.Chmod(name, file.mode)
	if err != nil {
		return errors.Wrapf(err, "chmod %s", name)
	}

	err = os.MkdirAll(filepath.Dir(file.Path), DirMode)
	if err != nil {
		return errors.Wrapf(err, "creating directory for %s", file.Path)
	}

	// someone else got here while we were writing
	if lexists(file.Path) {
		cleanup(name)
		corrupt(file.Path, "file appeared while it was being written")
	}

	err = os.Rename(name, file.Path)
	if err != nil {
		return errors.Wrapf(err, "renaming %s to %s", name, file.Path)
	}
	log.Debugf("wrote %d bytes to %s", file.n, file.Path)
	return
}

// writeFile copies rd into a new file at path via a WORM.
func writeFile(temp, path string, mode os.FileMode, expect string, rd io.Reader) (n int64, err error) {
	file, err := CreateWORM(temp, path, mode)
	if err != nil {
		return
	}
	file.Expect = expect
	n, err = io.Copy(file, rd)
	if err != nil {
		file.Abort()
		return n, errors.Wrapf(err, "writing %s", path)
	}
	err = file.Close()
	return
}

// moveFile renames src onto dst.  This is the one place a real file
// changes directory; src must exist and dst must not.
func moveFile(src, dst string) (err error) {
	if !lexists(src) {
		corrupt(src, "file to move is missing")
	}
	if lexists(dst) {
		corrupt(dst, "move destination already exists")
	}
	err = os.MkdirAll(filepath.Dir(dst), DirMode)
	if err != nil {
		return errors.Wrapf(err, "creating directory for %s", dst)
	}
	err = os.Rename(src, dst)
	if err != nil {
		return errors.Wrapf(err, "moving %s to %s", src, dst)
	}
	return
}

func cleanup(name string) {
	err := os.Remove(name)
	if err != nil && !os.IsNotExist(err) {
		log.Warnf("could not remove temp file %s: %v", name, err)
	}
}

func lexists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
