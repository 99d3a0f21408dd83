package debpool

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinels for errors.Is.  Each typed error below matches exactly one
// of these.
var (
	ErrHashMismatch     = errors.New("pool file overwrite")
	ErrNotInPool        = errors.New("not in pool")
	ErrMissingSymlink   = errors.New("missing symlink in pool")
	ErrUnknownComponent = errors.New("unknown component")
	ErrBadPoolPath      = errors.New("bad pool path")
)

// HashMismatchError is returned when a file with the same source and
// filename is already in the pool with different content.
type HashMismatchError struct {
	Path     string
	Expected string
	Found    string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("%s is already in the pool with a different checksum: expected %s, found %s",
		e.Path, e.Expected, e.Found)
}

func (e *HashMismatchError) Is(target error) bool {
	return target == ErrHashMismatch
}

// NotInPoolError is returned when a file to be removed has no real
// copy in any component.
type NotInPoolError struct {
	Component string
	Source    string
	Filename  string
}

func (e *NotInPoolError) Error() string {
	return fmt.Sprintf("%s/%s is not in the pool (removing from %s)", e.Source, e.Filename, e.Component)
}

func (e *NotInPoolError) Is(target error) bool {
	return target == ErrNotInPool
}

// MissingSymlinkError means a component was expected to hold a symlink
// and holds nothing.  This needs an operator; it is never healed
// automatically.
type MissingSymlinkError struct {
	Path string
}

func (e *MissingSymlinkError) Error() string {
	return fmt.Sprintf("symlink for %s is missing from the pool", e.Path)
}

func (e *MissingSymlinkError) Is(target error) bool {
	return target == ErrMissingSymlink
}

type UnknownComponentError struct {
	Component string
}

func (e *UnknownComponentError) Error() string {
	return fmt.Sprintf("component %q is not configured for this pool", e.Component)
}

func (e *UnknownComponentError) Is(target error) bool {
	return target == ErrUnknownComponent
}

// PathError reports a path or name that does not fit the pool layout.
type PathError struct {
	Path   string
	Reason string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

func (e *PathError) Is(target error) bool {
	return target == ErrBadPoolPath
}

// CorruptionError is the panic value raised when the on-disk state
// breaks a pool invariant, e.g. two real files for one name, or a rename
// whose destination already exists.  It is never returned as an error:
// carrying on after one of these risks losing data.
type CorruptionError struct {
	Path   string
	Reason string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("pool corruption at %s: %s", e.Path, e.Reason)
}

// IsCorruption reports whether a value obtained from recover() is a
// pool corruption panic.
func IsCorruption(recovered interface{}) bool {
	_, ok := recovered.(*CorruptionError)
	return ok
}

func corrupt(path string, format string, args ...interface{}) {
	panic(&CorruptionError{Path: path, Reason: fmt.Sprintf(format, args...)})
}
