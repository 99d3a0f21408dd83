package debpool

import (
	"os"
	"strconv"

	"github.com/google/renameio"
	"github.com/pkg/errors"
	. "github.com/stevegt/goadapt"
	"gopkg.in/yaml.v3"
)

// Config describes a pool on disk.  It is what the CLI keeps in
// pool.yaml.
type Config struct {
	Root       string   `yaml:"root"`
	Temp       string   `yaml:"temp"`
	Components []string `yaml:"components"`
	// FileMode is an octal string such as "0644"; empty means FileMode.
	FileMode string `yaml:"filemode,omitempty"`
}

// LoadConfig reads and validates a config file.
func LoadConfig(path string) (conf *Config, err error) {
	defer Return(&err)
	buf, err := os.ReadFile(path)
	Ck(err)
	conf = &Config{}
	err = yaml.Unmarshal(buf, conf)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	err = conf.Validate()
	if err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	return
}

// Validate checks the config without touching the filesystem.
func (conf *Config) Validate() (err error) {
	if conf.Root == "" {
		return errors.New("root is not set")
	}
	if conf.Temp == "" {
		return errors.New("temp is not set")
	}
	if len(conf.Components) == 0 {
		return errors.New("no components listed")
	}
	_, err = conf.mode()
	return
}

func (conf *Config) mode() (os.FileMode, error) {
	if conf.FileMode == "" {
		return FileMode, nil
	}
	n, err := strconv.ParseUint(conf.FileMode, 8, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "bad filemode %q", conf.FileMode)
	}
	return os.FileMode(n), nil
}

// Save writes the config to path, replacing any previous file
// atomically.
func (conf *Config) Save(path string) (err error) {
	defer Return(&err)
	err = conf.Validate()
	Ck(err)
	buf, err := yaml.Marshal(conf)
	Ck(err)
	err = renameio.WriteFile(path, buf, FileMode)
	Ck(err)
	return
}

// Open returns the pool the config describes.  opts are applied after
// the config's own settings.
func (conf *Config) Open(opts ...Option) (pool *Pool, err error) {
	err = conf.Validate()
	if err != nil {
		return
	}
	mode, err := conf.mode()
	if err != nil {
		return
	}
	opts = append([]Option{WithFileMode(mode)}, opts...)
	return New(conf.Root, conf.Temp, conf.Components, opts...)
}
