package debpool

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	. "github.com/stevegt/goadapt"
)

func TestPoolify(t *testing.T) {
	cases := []struct {
		source, component, expect string
	}{
		{"libfoo", "main", "main/libf/libfoo"},
		{"foo", "main", "main/f/foo"},
		{"lib", "universe", "universe/lib/lib"},
		{"libx", "universe", "universe/libx/libx"},
		{"li", "main", "main/l/li"},
		{"x", "multiverse", "multiverse/x/x"},
	}
	for _, c := range cases {
		got := Poolify(c.source, c.component)
		tassert(t, got == c.expect, "Poolify(%q, %q): expected %s, got %s", c.source, c.component, c.expect, got)
	}
}

func TestUnpoolifyRoundTrip(t *testing.T) {
	for _, source := range []string{"foo", "libfoo", "lib", "a", "linux", "libreoffice"} {
		for _, component := range order {
			p := Poolify(source, component) + "/" + source + "_1.0.dsc"
			c, s, f, err := Unpoolify(p)
			tassert(t, err == nil, "Unpoolify(%s): %v", p, err)
			tassert(t, c == component && s == source && f == source+"_1.0.dsc",
				"Unpoolify(%s) = %s %s %s", p, c, s, f)

			c, s, f, err = Unpoolify(Poolify(source, component))
			tassert(t, err == nil, "Unpoolify: %v", err)
			tassert(t, c == component && s == source && f == "", "got %s %s %q", c, s, f)
		}
	}
}

func TestUnpoolifyErrors(t *testing.T) {
	for _, p := range []string{
		"main",
		"main/f",
		"main/f/foo/foo.dsc/extra",
		"main/g/foo",
		"main/lib/libfoo/libfoo.dsc",
		"main/l/libfoo",
		"main/f/foo/",
		"main//foo/foo.dsc",
		"main/f/foo/..",
		"/main/f/foo",
	} {
		_, _, _, err := Unpoolify(p)
		tassert(t, errors.Is(err, ErrBadPoolPath), "Unpoolify(%s): expected bad path, got %v", p, err)
	}
}

func TestPath(t *testing.T) {
	pool := setup(t)

	rel := "main/libf/libfoo/libfoo_1.0.dsc"
	path, err := Path{}.New(pool, rel)
	tassert(t, err == nil, "%#v", err)
	expect := filepath.Join(pool.Root(), "main", "libf", "libfoo", "libfoo_1.0.dsc")
	tassert(t, path.Abs == expect, "expected %s, got %s", expect, path.Abs)
	tassert(t, path.Rel == rel, "expected %s, got %s", rel, path.Rel)
	tassert(t, path.Component == "main" && path.Source == "libfoo" && path.Filename == "libfoo_1.0.dsc",
		"%#v", path)

	// absolute paths inside the root work too
	path, err = Path{}.New(pool, expect)
	tassert(t, err == nil, "%#v", err)
	tassert(t, path.Rel == rel, "expected %s, got %s", rel, path.Rel)

	_, err = Path{}.New(pool, "/somewhere/else/main/f/foo/foo.dsc")
	tassert(t, errors.Is(err, ErrBadPoolPath), "expected bad path, got %v", err)

	_, err = Path{}.New(pool, "contrib/f/foo/foo.dsc")
	tassert(t, errors.Is(err, ErrUnknownComponent), "expected unknown component, got %v", err)
}

func TestRelativeTarget(t *testing.T) {
	cases := []struct {
		src, dst, expect string
	}{
		{"/p/main/f/foo/foo.dsc", "/p/universe/f/foo/foo.dsc", "../../../main/f/foo/foo.dsc"},
		{"/p/main/f/foo/foo.dsc", "/p/main/f/foo/bar.dsc", "foo.dsc"},
		{"/p/main/libf/libfoo/a", "/p/main/libf/libfoo2/a", "../libfoo/a"},
		{"p/main/f/foo/foo.dsc", "p/restricted/f/foo/foo.dsc", "../../../main/f/foo/foo.dsc"},
	}
	for _, c := range cases {
		got, err := relativeTarget(c.src, c.dst)
		tassert(t, err == nil, "relativeTarget: %v", err)
		tassert(t, got == c.expect, "relativeTarget(%s, %s): expected %s, got %s", c.src, c.dst, c.expect, got)
		tassert(t, !filepath.IsAbs(got), "absolute target %s", got)
	}
}

func TestRelativeSymlink(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main", "f", "foo", "foo.dsc")
	dst := filepath.Join(dir, "universe", "f", "foo", "foo.dsc")
	err := os.MkdirAll(filepath.Dir(src), DirMode)
	Ck(err)
	err = os.MkdirAll(filepath.Dir(dst), DirMode)
	Ck(err)
	err = os.WriteFile(src, []byte("content"), FileMode)
	Ck(err)

	err = RelativeSymlink(src, dst)
	tassert(t, err == nil, "RelativeSymlink: %v", err)
	target, err := os.Readlink(dst)
	Ck(err)
	tassert(t, target == "../../../main/f/foo/foo.dsc", "target %s", target)
	sameContent(t, dst, []byte("content"))

	// replacing an existing link
	other := filepath.Join(dir, "restricted", "f", "foo", "foo.dsc")
	err = os.MkdirAll(filepath.Dir(other), DirMode)
	Ck(err)
	err = os.WriteFile(other, []byte("other"), FileMode)
	Ck(err)
	err = RelativeSymlink(other, dst)
	tassert(t, err == nil, "RelativeSymlink: %v", err)
	sameContent(t, dst, []byte("other"))
}
