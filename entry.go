package debpool

import (
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// AddResult says what AddFile did.
type AddResult int

const (
	NoOp         AddResult = iota // already present in the component
	FileAdded                     // real file written
	SymlinkAdded                  // symlink to an existing real file made
)

func (r AddResult) String() string {
	switch r {
	case FileAdded:
		return "added"
	case SymlinkAdded:
		return "symlinked"
	default:
		return "no-op"
	}
}

// Entry is the state of one (source, filename) pair across the pool's
// components.  At most one component holds the real file, symlinks
// only exist alongside a real file, and the real file always lives in
// the most preferred component holding either.
type Entry struct {
	pool          *Pool
	log           log.FieldLogger
	Source        string
	Filename      string
	RealComponent string // "" when the file is not in the pool
	symlinks      map[string]bool
}

// scan reads the entry's state from disk.
func (entry *Entry) scan() (err error) {
	entry.RealComponent = ""
	entry.symlinks = make(map[string]bool)
	for _, component := range entry.pool.components {
		path := entry.pathFor(component)
		info, err := os.Lstat(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "scanning %s", path)
		}
		mode := info.Mode()
		switch {
		case mode&os.ModeSymlink != 0:
			entry.symlinks[component] = true
		case mode.IsRegular():
			if entry.RealComponent != "" {
				corrupt(path, "second real file, first is in %s", entry.RealComponent)
			}
			entry.RealComponent = component
		default:
			corrupt(path, "not a file or symlink (mode %v)", mode)
		}
	}
	if len(entry.symlinks) > 0 && entry.RealComponent == "" {
		corrupt(entry.pathFor(entry.Symlinks()[0]), "symlinks present without a real file")
	}
	entry.log.Debugf("scanned: real %q symlinks %v", entry.RealComponent, entry.Symlinks())
	return nil
}

// Symlinks returns the components holding symlinks, in preference
// order.
func (entry *Entry) Symlinks() (components []string) {
	for _, c := range entry.pool.components {
		if entry.symlinks[c] {
			components = append(components, c)
		}
	}
	return
}

// Components returns every component that has the file, real or
// symlinked, in preference order.
func (entry *Entry) Components() (components []string) {
	for _, c := range entry.pool.components {
		if c == entry.RealComponent || entry.symlinks[c] {
			components = append(components, c)
		}
	}
	return
}

func (entry *Entry) pathFor(component string) string {
	return entry.pool.PathFor(component, entry.Source, entry.Filename)
}

// AddFile makes file available in component.  If the pool has no copy
// yet the bytes are written there; otherwise the existing copy's
// checksum must match file's, and component gets a symlink to it.
func (entry *Entry) AddFile(component string, file File) (res AddResult, err error) {
	if !entry.pool.hasComponent(component) {
		return NoOp, &UnknownComponentError{Component: component}
	}
	logger := entry.log.WithField("component", component)

	if entry.RealComponent == "" {
		err = entry.write(component, file)
		if err != nil {
			return NoOp, err
		}
		entry.RealComponent = component
		logger.Info("added file to pool")
		return FileAdded, nil
	}

	expected, err := file.SHA1()
	if err != nil {
		return NoOp, errors.Wrapf(err, "checksum of %s", file.Filename())
	}
	realpath := entry.pathFor(entry.RealComponent)
	found, err := sha1File(realpath)
	if err != nil {
		return NoOp, errors.Wrapf(err, "checksum of %s", realpath)
	}
	if !sameSum(expected, found) {
		return NoOp, &HashMismatchError{Path: realpath, Expected: expected, Found: found}
	}

	if component == entry.RealComponent || entry.symlinks[component] {
		logger.Debug("already in pool")
		return NoOp, nil
	}

	err = entry.link(component)
	if err != nil {
		return NoOp, err
	}
	entry.symlinks[component] = true
	logger.Infof("linked to real file in %s", entry.RealComponent)

	err = entry.sanitize()
	if err != nil {
		return NoOp, err
	}
	return SymlinkAdded, nil
}

// write puts a new real file into component.
func (entry *Entry) write(component string, file File) (err error) {
	var expect string
	if entry.pool.verify {
		expect, err = file.SHA1()
		if err != nil {
			return errors.Wrapf(err, "checksum of %s", file.Filename())
		}
	}
	rd, err := file.Open()
	if err != nil {
		return errors.Wrapf(err, "opening %s", file.Filename())
	}
	defer rd.Close()
	_, err = writeFile(entry.pool.temp, entry.pathFor(component), entry.pool.mode, expect, rd)
	return
}

// link makes a symlink in component pointing at the real file.
func (entry *Entry) link(component string) (err error) {
	path := entry.pathFor(component)
	if lexists(path) {
		corrupt(path, "unexpected file where a new symlink should go")
	}
	err = os.MkdirAll(entry.pool.PathFor(component, entry.Source, ""), DirMode)
	if err != nil {
		return errors.Wrapf(err, "creating directory for %s", path)
	}
	err = RelativeSymlink(entry.pathFor(entry.RealComponent), path)
	if err != nil {
		return errors.Wrapf(err, "linking %s", path)
	}
	return
}

// RemoveFile removes the file from component and returns the number
// of bytes it used on disk: the file's size for a real file, the
// link's own size for a symlink.  If other components still link to
// the real file, it is first moved to the most preferred of them.
func (entry *Entry) RemoveFile(component string) (size int64, err error) {
	if !entry.pool.hasComponent(component) {
		return 0, &UnknownComponentError{Component: component}
	}
	if entry.RealComponent == "" {
		return 0, &NotInPoolError{Component: component, Source: entry.Source, Filename: entry.Filename}
	}
	logger := entry.log.WithField("component", component)
	path := entry.pathFor(component)

	if entry.symlinks[component] {
		info, err := os.Lstat(path)
		if err != nil {
			return 0, errors.Wrapf(err, "removing %s", path)
		}
		if info.Mode()&os.ModeSymlink == 0 {
			corrupt(path, "expected a symlink")
		}
		err = os.Remove(path)
		if err != nil {
			return 0, errors.Wrapf(err, "removing %s", path)
		}
		delete(entry.symlinks, component)
		logger.Info("removed symlink from pool")
		return info.Size(), nil
	}

	if component != entry.RealComponent {
		return 0, &MissingSymlinkError{Path: path}
	}

	info, err := os.Lstat(path)
	if err != nil {
		return 0, errors.Wrapf(err, "removing %s", path)
	}
	size = info.Size()

	if len(entry.symlinks) > 0 {
		target := entry.preferredComponent("", component)
		logger.Debugf("moving real file to %s before removal", target)
		err = entry.shuffle(target)
		if err != nil {
			return 0, err
		}
		// component now holds a symlink to the moved file
		delete(entry.symlinks, component)
	} else {
		entry.RealComponent = ""
	}

	err = os.Remove(path)
	if err != nil {
		return 0, errors.Wrapf(err, "removing %s", path)
	}
	if entry.RealComponent == "" && len(entry.symlinks) > 0 {
		corrupt(path, "removed the last real file while symlinks remain")
	}
	logger.Infof("removed %d bytes from pool", size)
	return size, nil
}

// preferredComponent returns the most preferred component among those
// holding the file, plus add, minus remove.  "" means none.
func (entry *Entry) preferredComponent(add, remove string) string {
	for _, c := range entry.pool.components {
		if c == remove {
			continue
		}
		if c == add || c == entry.RealComponent || entry.symlinks[c] {
			return c
		}
	}
	return ""
}

// sanitize moves the real file into the most preferred component that
// has the file, so partial mirrors of the core components never see a
// dangling link where they expect the file.
func (entry *Entry) sanitize() error {
	preferred := entry.preferredComponent("", "")
	if preferred == entry.RealComponent {
		return nil
	}
	entry.log.Debugf("real file in %s, preferred %s", entry.RealComponent, preferred)
	return entry.shuffle(preferred)
}

// shuffle moves the real file into target, which must currently hold
// a symlink, and re-points every other symlink at the new location.
func (entry *Entry) shuffle(target string) (err error) {
	if !entry.symlinks[target] {
		corrupt(entry.pathFor(target), "shuffle target is not a symlink component")
	}
	targetpath := entry.pathFor(target)
	sourcepath := entry.pathFor(entry.RealComponent)

	err = os.Remove(targetpath)
	if err != nil {
		return errors.Wrapf(err, "removing symlink %s", targetpath)
	}
	err = moveFile(sourcepath, targetpath)
	if err != nil {
		return err
	}

	old := entry.RealComponent
	entry.symlinks[old] = true
	delete(entry.symlinks, target)
	entry.RealComponent = target

	for _, c := range entry.Symlinks() {
		path := entry.pathFor(c)
		err = RelativeSymlink(targetpath, path)
		if err != nil {
			return errors.Wrapf(err, "re-linking %s", path)
		}
	}
	entry.log.Infof("moved real file from %s to %s", old, target)
	return nil
}
