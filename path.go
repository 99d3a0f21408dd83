package debpool

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/google/renameio"
)

// PoolPrefix returns the directory that groups sources under a
// component.  Sources named lib* are spread across the first four
// characters instead of one, because there are so many of them.
func PoolPrefix(sourceName string) string {
	n := 1
	if strings.HasPrefix(sourceName, "lib") {
		n = 4
	}
	if len(sourceName) < n {
		n = len(sourceName)
	}
	return sourceName[:n]
}

// Poolify returns the slash-separated directory of sourceName within
// component, relative to the pool root, e.g. "main/libf/libfoo".
func Poolify(sourceName, component string) string {
	return component + "/" + PoolPrefix(sourceName) + "/" + sourceName
}

// Unpoolify splits a pool-relative path of the form
// component/prefix/source[/filename] back into its parts.  filename is
// empty when the path names a source directory.
func Unpoolify(p string) (component, sourceName, filename string, err error) {
	parts := strings.Split(p, "/")
	if len(parts) < 3 || len(parts) > 4 {
		err = &PathError{Path: p, Reason: "not in a valid pool form"}
		return
	}
	for _, part := range parts {
		if checkName(part) != nil {
			err = &PathError{Path: p, Reason: "empty or invalid path segment"}
			return
		}
	}
	component, sourceName = parts[0], parts[2]
	if len(parts) == 4 {
		filename = parts[3]
	}
	if Poolify(sourceName, component) != strings.Join(parts[:3], "/") {
		err = &PathError{Path: p, Reason: "prefix does not match source name"}
		return "", "", "", err
	}
	return
}

// Path is a file location within a pool, in every form callers need.
type Path struct {
	Pool      *Pool
	Raw       string
	Abs       string // absolute
	Rel       string // relative to the pool root, slash separated
	Component string
	Source    string
	Filename  string
}

// New parses raw, which may be absolute (inside the pool root) or
// relative to the pool root.
func (p Path) New(pool *Pool, raw string) (res *Path, err error) {
	p.Pool = pool
	p.Raw = raw

	clean := filepath.Clean(raw)
	if filepath.IsAbs(clean) {
		clean, err = filepath.Rel(pool.root, clean)
		if err != nil || strings.HasPrefix(clean, "..") {
			return nil, &PathError{Path: raw, Reason: "outside pool root " + pool.root}
		}
	}
	p.Rel = filepath.ToSlash(clean)

	p.Component, p.Source, p.Filename, err = Unpoolify(p.Rel)
	if err != nil {
		return nil, err
	}
	if !pool.hasComponent(p.Component) {
		return nil, &UnknownComponentError{Component: p.Component}
	}
	p.Abs = filepath.Join(pool.root, filepath.FromSlash(p.Rel))
	return &p, nil
}

// relativeTarget returns src as seen from the directory holding dst.
// Both must be absolute, or both relative to the same base.
func relativeTarget(src, dst string) (string, error) {
	return filepath.Rel(filepath.Dir(filepath.Clean(dst)), filepath.Clean(src))
}

// RelativeSymlink makes dst a symlink to src using a relative target,
// so the pool keeps working when it is mirrored under another root.
// An existing link at dst is replaced atomically.
func RelativeSymlink(src, dst string) (err error) {
	target, err := relativeTarget(src, dst)
	if err != nil {
		return err
	}
	if path.IsAbs(filepath.ToSlash(target)) {
		corrupt(dst, "computed absolute symlink target %s", target)
	}
	return renameio.Symlink(target, dst)
}
