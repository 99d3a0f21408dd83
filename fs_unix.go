//go:build linux || darwin || freebsd || netbsd || openbsd
// +build linux darwin freebsd netbsd openbsd

package debpool

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// sameFilesystem reports whether a and b live on the same device, so
// that rename between them is atomic.
func sameFilesystem(a, b string) (same bool, err error) {
	var sa, sb unix.Stat_t
	err = unix.Stat(a, &sa)
	if err != nil {
		return false, errors.Wrapf(err, "stat %s", a)
	}
	err = unix.Stat(b, &sb)
	if err != nil {
		return false, errors.Wrapf(err, "stat %s", b)
	}
	return sa.Dev == sb.Dev, nil
}
