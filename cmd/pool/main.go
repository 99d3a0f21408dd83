package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/docopt/docopt-go"
	humanize "github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/t7a/debpool"
	"github.com/t7a/debpool/watch"
)

func init() {
	var debug string
	debug = os.Getenv("DEBUG")
	if debug == "1" {
		log.SetLevel(log.DebugLevel)
	}
	log.SetReportCaller(true)
	formatter := &log.TextFormatter{
		CallerPrettyfier: caller(),
		FieldMap: log.FieldMap{
			log.FieldKeyFile: "caller",
		},
	}
	formatter.TimestampFormat = "15:04:05.999999999"
	log.SetFormatter(formatter)
}

// caller returns string presentation of log caller which is formatted as
// `/path/to/file.go:line_number`. e.g. `/internal/app/api.go:25`
func caller() func(*runtime.Frame) (function string, file string) {
	return func(f *runtime.Frame) (function string, file string) {
		p, _ := os.Getwd()
		return "", fmt.Sprintf("%s:%d", strings.TrimPrefix(f.File, p), f.Line)
	}
}

type Opts struct {
	Init       bool
	Add        bool
	Remove     bool
	Path       bool
	Status     bool
	Unpoolify  bool
	Strays     bool
	Watch      bool
	Root       string
	Temp       string
	Components []string
	Component  string
	Source     string
	Version    string
	File       string
	Filename   string
	Poolpath   string
}

// exit codes
const (
	rcOk          = 0
	rcUsage       = 22
	rcFail        = 42
	rcMismatch    = 43
	rcNotInPool   = 44
	rcCorruption  = 70
	defaultConfig = "pool.yaml"
)

func main() {
	// see https://github.com/google/go-cmdtest
	os.Exit(run())
}

func run() (rc int) {

	usage := `pool

Usage:
  pool init <root> <temp> <components>...
  pool add <component> <source> <version> <file>
  pool remove <component> <source> <version> <filename>
  pool path <component> <source> [<filename>]
  pool status <source> <filename>
  pool unpoolify <poolpath>
  pool strays
  pool watch

Options:
  -h --help     Show this screen.

Environment:
  POOLCONF      pool config file (default ./pool.yaml)
  DEBUG=1       debug logging
`
	parser := &docopt.Parser{HelpHandler: docopt.PrintHelpOnly, OptionsFirst: false}
	o, err := parser.ParseArgs(usage, os.Args[1:], "")
	if err != nil {
		return rcUsage
	}
	var opts Opts
	err = o.Bind(&opts)
	if err != nil {
		log.Error(err)
		return rcUsage
	}
	log.Debug(opts)

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if !debpool.IsCorruption(r) {
			panic(r)
		}
		log.Errorf("%v; the pool needs manual repair", r)
		rc = rcCorruption
	}()

	switch true {
	case opts.Init:
		msg, err := create(opts.Root, opts.Temp, opts.Components)
		if err != nil {
			return fail(err)
		}
		fmt.Println(msg)
	case opts.Add:
		res, err := addFile(opts.Component, opts.Source, opts.Version, opts.File)
		if err != nil {
			return fail(err)
		}
		fmt.Println(res)
	case opts.Remove:
		size, err := removeFile(opts.Component, opts.Source, opts.Version, opts.Filename)
		if err != nil {
			return fail(err)
		}
		fmt.Printf("freed %s\n", humanize.Bytes(uint64(size)))
	case opts.Path:
		pool, err := openpool()
		if err != nil {
			return fail(err)
		}
		fmt.Println(pool.PathFor(opts.Component, opts.Source, opts.Filename))
	case opts.Status:
		lines, err := status(opts.Source, opts.Filename)
		if err != nil {
			return fail(err)
		}
		fmt.Println(strings.Join(lines, "\n"))
	case opts.Unpoolify:
		component, source, filename, err := debpool.Unpoolify(opts.Poolpath)
		if err != nil {
			return fail(err)
		}
		fmt.Println(strings.TrimSpace(strings.Join([]string{component, source, filename}, " ")))
	case opts.Strays:
		pool, err := openpool()
		if err != nil {
			return fail(err)
		}
		strays, err := pool.StrayTempFiles()
		if err != nil {
			return fail(err)
		}
		for _, stray := range strays {
			fmt.Println(stray)
		}
	case opts.Watch:
		err := watchPool()
		if err != nil {
			return fail(err)
		}
	}
	return rcOk
}

// fail logs err and maps it to an exit code.
func fail(err error) int {
	log.Error(err)
	switch {
	case errors.Is(err, debpool.ErrHashMismatch):
		return rcMismatch
	case errors.Is(err, debpool.ErrNotInPool), errors.Is(err, debpool.ErrMissingSymlink):
		return rcNotInPool
	}
	return rcFail
}

func confpath() string {
	path := os.Getenv("POOLCONF")
	if path == "" {
		path = defaultConfig
	}
	return path
}

func create(root, temp string, components []string) (msg string, err error) {
	conf := &debpool.Config{Root: root, Temp: temp, Components: components}
	_, err = conf.Open()
	if err != nil {
		return
	}
	err = conf.Save(confpath())
	if err != nil {
		return
	}
	return fmt.Sprintf("Initialized empty pool in %s", root), nil
}

func openpool() (pool *debpool.Pool, err error) {
	conf, err := debpool.LoadConfig(confpath())
	if err != nil {
		return
	}
	return conf.Open()
}

func addFile(component, source, version, path string) (res debpool.AddResult, err error) {
	pool, err := openpool()
	if err != nil {
		return
	}
	return pool.AddFile(component, source, version, &debpool.LocalFile{Path: path})
}

func removeFile(component, source, version, filename string) (size int64, err error) {
	pool, err := openpool()
	if err != nil {
		return
	}
	return pool.RemoveFile(component, source, version, filename)
}

func status(source, filename string) (lines []string, err error) {
	pool, err := openpool()
	if err != nil {
		return
	}
	entry, err := pool.Entry(source, filename)
	if err != nil {
		return
	}
	if entry.RealComponent == "" {
		return []string{"not in pool"}, nil
	}
	symlinks := "none"
	if syms := entry.Symlinks(); len(syms) > 0 {
		symlinks = strings.Join(syms, " ")
	}
	lines = append(lines, "real: "+entry.RealComponent, "symlinks: "+symlinks)
	return
}

func watchPool() (err error) {
	pool, err := openpool()
	if err != nil {
		return
	}
	w, err := watch.New(pool)
	if err != nil {
		return
	}
	defer w.Close()
	for {
		select {
		case ev, ok := <-w.Events():
			if !ok {
				return
			}
			rel, _ := filepath.Rel(pool.Root(), ev.Path)
			fmt.Printf("%s %s\n", ev.Op, filepath.ToSlash(rel))
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			log.Warn(err)
		}
	}
}
