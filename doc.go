/*

Debpool is the disk pool of a Debian-style archive: it stores each
uniquely named package file once, and shares it between the
archive's components with relative symlinks.

Vocabulary:

- root: top directory of the pool; every component is a subdir of it
- temp: directory where new files are staged; must be on the same
	filesystem as root so that rename is atomic
- component: named part of an archive (main, universe, ...); the pool
	is configured with a fixed preference order, most preferred first
- prefix: first character of a source name, or first four for lib*
- abspath: absolute path on disk,
	root/component/prefix/source/filename
- relpath: the same path relative to root, slash separated
- entry: the on-disk state of one (source, filename) pair across all
	components; re-read from disk on every call, never cached
- real component: the component holding the file's bytes
- symlink component: a component holding a relative symlink to the
	real file
- shuffle: moving the real file into another component and re-pointing
	every symlink at it
- sanitize: shuffling as needed so the real file always lives in the
	most preferred component that has the file

The filesystem is the only state.  The pool takes no locks; callers
must make sure only one process publishes into a pool at a time.

*/

package debpool
