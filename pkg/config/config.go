// Package config handles classlink.toml configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FileName is the configuration file looked up by Load and FindAndLoad.
const FileName = "classlink.toml"

// JDKAuto asks for java.base.jmod to be discovered from the environment.
const JDKAuto = "auto"

// Config represents a classlink.toml file.
type Config struct {
	Classpath []string `toml:"classpath"`
	Entry     string   `toml:"entry"`
	JDK       string   `toml:"jdk"`
	Log       Log      `toml:"log"`

	// Dir is the directory containing the file (set at load time).
	Dir string `toml:"-"`
}

// Log configures the zap logger.
type Log struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		JDK: JDKAuto,
		Log: Log{Level: "info"},
		Dir: ".",
	}
}

// Load parses classlink.toml from dir on top of Default.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find classlink.toml. It returns
// Default when none is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// Validate reports every problem in c at once.
func (c *Config) Validate() error {
	var err error
	var level zapcore.Level
	if e := level.UnmarshalText([]byte(c.Log.Level)); e != nil {
		err = multierr.Append(err, fmt.Errorf("log.level: %w", e))
	}
	for _, p := range c.Classpath {
		if _, e := os.Stat(c.path(p)); e != nil {
			err = multierr.Append(err, fmt.Errorf("classpath: %w", e))
		}
	}
	if c.JDK != "" && c.JDK != JDKAuto {
		if _, e := os.Stat(c.path(c.JDK)); e != nil {
			err = multierr.Append(err, fmt.Errorf("jdk: %w", e))
		}
	}
	if strings.ContainsAny(c.Entry, " \t") {
		err = multierr.Append(err, fmt.Errorf("entry: invalid class name %q", c.Entry))
	}
	return err
}

func (c *Config) path(p string) string {
	if filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// EntryClass returns Entry as a binary name (java/lang/Object).
func (c *Config) EntryClass() string {
	return strings.ReplaceAll(c.Entry, ".", "/")
}

// ErrNoJDK is returned when jdk = "auto" and no java.base.jmod can be found.
var ErrNoJDK = errors.New("could not find java.base.jmod; set JAVA_HOME or JAVA_BASE_JMOD")

// SearchPath returns the classpath roots in order, followed by the JDK's
// java.base.jmod. An empty jdk leaves the JDK off.
func (c *Config) SearchPath() ([]string, error) {
	roots := make([]string, 0, len(c.Classpath)+1)
	for _, p := range c.Classpath {
		roots = append(roots, c.path(p))
	}
	switch c.JDK {
	case "":
	case JDKAuto:
		jmod := FindJmod()
		if jmod == "" {
			return nil, ErrNoJDK
		}
		roots = append(roots, jmod)
	default:
		p := c.path(c.JDK)
		if !strings.HasSuffix(p, ".jmod") {
			p = filepath.Join(p, "jmods", "java.base.jmod")
		}
		roots = append(roots, p)
	}
	return roots, nil
}

// FindJmod locates java.base.jmod from JAVA_BASE_JMOD, then JAVA_HOME, then
// the usual OpenJDK install locations. It returns "" when nothing is found.
func FindJmod() string {
	// 1. Explicit env var
	if env := os.Getenv("JAVA_BASE_JMOD"); env != "" {
		return env
	}
	// 2. JAVA_HOME
	if javaHome := os.Getenv("JAVA_HOME"); javaHome != "" {
		p := filepath.Join(javaHome, "jmods", "java.base.jmod")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	// 3. Glob fallback
	matches, _ := filepath.Glob("/usr/lib/jvm/java-*-openjdk-*/jmods/java.base.jmod")
	if len(matches) > 0 {
		return matches[0]
	}
	return ""
}

// Logger builds the zap logger described by c.Log.
func (c *Config) Logger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if err := zc.Level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	return zc.Build()
}
