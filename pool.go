package debpool

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	. "github.com/stevegt/goadapt"
)

// Pool is the on-disk store of one archive's package files.  It is
// immutable after New, and holds no state beyond the directory tree.
type Pool struct {
	root       string
	temp       string
	components []string
	log        log.FieldLogger
	mode       os.FileMode
	verify     bool
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the logger the pool reports to.  Defaults to the
// logrus standard logger.
func WithLogger(logger log.FieldLogger) Option {
	return func(pool *Pool) {
		pool.log = logger
	}
}

// WithFileMode sets the mode of files written into the pool.
func WithFileMode(mode os.FileMode) Option {
	return func(pool *Pool) {
		pool.mode = mode
	}
}

// WithVerifyWrites turns checking each new file's SHA-1 against the
// caller's checksum on or off.  On by default.
func WithVerifyWrites(verify bool) Option {
	return func(pool *Pool) {
		pool.verify = verify
	}
}

// New returns a pool rooted at root, staging new files in temp.
// components lists the archive's components, most preferred first.
// Both directories are created if needed, and must be on the same
// filesystem.
func New(root, temp string, components []string, opts ...Option) (pool *Pool, err error) {
	defer Return(&err)

	if root == "" || temp == "" {
		return nil, errors.New("pool root and temp directory must both be set")
	}
	if len(components) == 0 {
		return nil, errors.New("pool needs at least one component")
	}
	seen := make(map[string]bool)
	for _, c := range components {
		err = checkName(c)
		if err != nil {
			return nil, errors.Wrap(err, "bad component")
		}
		if seen[c] {
			return nil, errors.Errorf("component %q listed twice", c)
		}
		seen[c] = true
	}

	pool = &Pool{
		components: append([]string(nil), components...),
		log:        log.StandardLogger(),
		mode:       FileMode,
		verify:     true,
	}
	for _, opt := range opts {
		opt(pool)
	}

	pool.root, err = filepath.Abs(root)
	Ck(err)
	pool.temp, err = filepath.Abs(temp)
	Ck(err)
	err = os.MkdirAll(pool.root, DirMode)
	Ck(err)
	err = os.MkdirAll(pool.temp, DirMode)
	Ck(err)

	same, err := sameFilesystem(pool.root, pool.temp)
	Ck(err)
	if !same {
		return nil, errors.Errorf("temp directory %s is not on the same filesystem as pool root %s",
			pool.temp, pool.root)
	}
	return
}

// Root returns the absolute pool root.
func (pool *Pool) Root() string {
	return pool.root
}

// Temp returns the absolute temp directory.
func (pool *Pool) Temp() string {
	return pool.temp
}

// Components returns the configured components, most preferred first.
func (pool *Pool) Components() []string {
	return append([]string(nil), pool.components...)
}

func (pool *Pool) hasComponent(component string) bool {
	for _, c := range pool.components {
		if c == component {
			return true
		}
	}
	return false
}

// PathFor returns the absolute path of filename from sourceName in
// component.  An empty filename gives the source's directory.
func (pool *Pool) PathFor(component, sourceName, filename string) string {
	rel := filepath.FromSlash(Poolify(sourceName, component))
	return filepath.Join(pool.root, rel, filename)
}

// AddFile puts file into component.  sourceVersion is only used for
// logging.
func (pool *Pool) AddFile(component, sourceName, sourceVersion string, file File) (res AddResult, err error) {
	entry, err := pool.entry(sourceName, sourceVersion, file.Filename())
	if err != nil {
		return NoOp, err
	}
	return entry.AddFile(component, file)
}

// RemoveFile removes filename from component and returns the number
// of bytes the removed file or symlink used.  sourceVersion is only
// used for logging.
func (pool *Pool) RemoveFile(component, sourceName, sourceVersion, filename string) (size int64, err error) {
	entry, err := pool.entry(sourceName, sourceVersion, filename)
	if err != nil {
		return 0, err
	}
	return entry.RemoveFile(component)
}

// Entry reads the current state of (sourceName, filename) from disk.
// The result is a snapshot; it is not updated by later calls.
func (pool *Pool) Entry(sourceName, filename string) (*Entry, error) {
	return pool.entry(sourceName, "", filename)
}

func (pool *Pool) entry(sourceName, sourceVersion, filename string) (entry *Entry, err error) {
	err = checkName(sourceName)
	if err != nil {
		return
	}
	err = checkName(filename)
	if err != nil {
		return
	}
	fields := log.Fields{"source": sourceName, "filename": filename}
	if sourceVersion != "" {
		fields["version"] = sourceVersion
	}
	entry = &Entry{
		pool:     pool,
		Source:   sourceName,
		Filename: filename,
		log:      pool.log.WithFields(fields),
	}
	err = entry.scan()
	if err != nil {
		return nil, err
	}
	return
}

// StrayTempFiles lists files left in the temp directory by writes
// that never finished, and the scratch directories renameio leaves
// next to a symlink when a re-link is interrupted.
func (pool *Pool) StrayTempFiles() (strays []string, err error) {
	strays, err = filepath.Glob(filepath.Join(pool.temp, TempPrefix+"*"))
	if err != nil {
		return nil, err
	}
	scratch, err := filepath.Glob(filepath.Join(pool.root, "*", "*", "*", ".*"))
	if err != nil {
		return nil, err
	}
	for _, path := range scratch {
		info, err := os.Lstat(path)
		if err == nil && info.IsDir() {
			strays = append(strays, path)
		}
	}
	for _, stray := range strays {
		pool.log.WithField("path", stray).Warn("stray temp file")
	}
	return
}

// checkName makes sure name can be used as one path segment.
func checkName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return &PathError{Path: name, Reason: "invalid name"}
	case strings.ContainsRune(name, '/'), strings.ContainsRune(name, os.PathSeparator):
		return &PathError{Path: name, Reason: "name contains a path separator"}
	}
	return nil
}
