// Package config handles dbridge.toml generator configuration.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"martianoff/dbridge/bridgeerr"
	"martianoff/dbridge/internal/declgen"
	"martianoff/dbridge/internal/trampoline"
)

// FileName is the configuration file looked up from the working directory.
const FileName = "dbridge.toml"

// SearchPathEnv prepends metadata search paths (path-list syntax).
const SearchPathEnv = "DBRIDGE_SEARCH_PATH"

// Config holds configuration for both generators.
type Config struct {
	Metadata   Metadata   `toml:"metadata"`
	Reflect    Reflect    `toml:"reflect"`
	Trampoline Trampoline `toml:"trampoline"`
	Output     Output     `toml:"output"`

	// Path is the file the configuration was loaded from, "" for defaults.
	Path string `toml:"-"`
}

// Metadata configures where metadata dumps are found.
type Metadata struct {
	// SearchPaths are tried in order for bare module names.
	// Relative paths are relative to the configuration file.
	SearchPaths []string `toml:"search-paths"`
}

// Reflect configures the reflective stub generator.
type Reflect struct {
	// Package overrides the root D package. Defaults to the assembly name.
	Package          string `toml:"package"`
	IncludeNonPublic bool   `toml:"include-non-public"`

	CStringModule string `toml:"cstring-module"`
	DotNetModule  string `toml:"dotnet-module"`
	BridgeModule  string `toml:"bridge-module"`
	GlobalModule  string `toml:"global-module"`
}

// Trampoline configures the trampoline generator.
type Trampoline struct {
	HostModule         string   `toml:"host-module"`
	Imports            []string `toml:"imports"`
	Corlib             string   `toml:"corlib"`
	IncludeNonPublic   bool     `toml:"include-non-public"`
	WrapperExtension   string   `toml:"wrapper-extension"`
	CompanionExtension string   `toml:"companion-extension"`
}

// Output configures what is written besides generated code.
type Output struct {
	// Checksums writes a dbridge.sum manifest next to the outputs.
	Checksums bool `toml:"checksums"`
}

// Default returns the default configuration.
// The DBRIDGE_SEARCH_PATH environment variable is applied.
func Default() *Config {
	tramp := trampoline.DefaultOptions()
	c := &Config{
		Metadata: Metadata{SearchPaths: []string{"."}},
		Reflect: Reflect{
			CStringModule: declgen.DefaultImports.CString,
			DotNetModule:  declgen.DefaultImports.DotNet,
			BridgeModule:  declgen.DefaultImports.Bridge,
			GlobalModule:  declgen.DefaultImports.Global,
		},
		Trampoline: Trampoline{
			HostModule:         tramp.HostModule,
			Imports:            tramp.Imports,
			Corlib:             tramp.Corlib,
			WrapperExtension:   "d",
			CompanionExtension: "il",
		},
		Output: Output{Checksums: true},
	}
	c.applyEnv()
	return c
}

// Load parses a configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	c.Metadata.SearchPaths = nil

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, bridgeerr.NewConfigError(path, "cannot read configuration", err)
	}
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, bridgeerr.NewConfigError(path, "parse error", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, bridgeerr.NewConfigError(path, "unknown key "+undecoded[0].String(), nil)
	}

	c.Path, err = filepath.Abs(path)
	if err != nil {
		return nil, bridgeerr.NewConfigError(path, "cannot resolve path", err)
	}

	dir := filepath.Dir(c.Path)
	if len(c.Metadata.SearchPaths) == 0 {
		c.Metadata.SearchPaths = []string{"."}
	}
	for i, p := range c.Metadata.SearchPaths {
		if !filepath.IsAbs(p) {
			c.Metadata.SearchPaths[i] = filepath.Join(dir, p)
		}
	}
	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find dbridge.toml and loads it.
// Returns the defaults when no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// Validate rejects settings the generators cannot work with.
func (c *Config) Validate() error {
	required := []struct{ key, value string }{
		{"reflect.cstring-module", c.Reflect.CStringModule},
		{"reflect.dotnet-module", c.Reflect.DotNetModule},
		{"reflect.bridge-module", c.Reflect.BridgeModule},
		{"reflect.global-module", c.Reflect.GlobalModule},
		{"trampoline.host-module", c.Trampoline.HostModule},
		{"trampoline.corlib", c.Trampoline.Corlib},
		{"trampoline.wrapper-extension", c.Trampoline.WrapperExtension},
		{"trampoline.companion-extension", c.Trampoline.CompanionExtension},
	}
	for _, r := range required {
		if r.value == "" {
			return bridgeerr.NewConfigError(c.Path, r.key+" must not be empty", nil)
		}
	}
	return nil
}

// applyEnv prepends paths from DBRIDGE_SEARCH_PATH.
func (c *Config) applyEnv() {
	env := os.Getenv(SearchPathEnv)
	if env == "" {
		return
	}
	c.Metadata.SearchPaths = append(filepath.SplitList(env), c.Metadata.SearchPaths...)
}

// DeclOptions returns the declaration generator options.
func (c *Config) DeclOptions() declgen.Options {
	return declgen.Options{
		PackageName:      c.Reflect.Package,
		IncludeNonPublic: c.Reflect.IncludeNonPublic,
		Imports: declgen.Imports{
			CString: c.Reflect.CStringModule,
			DotNet:  c.Reflect.DotNetModule,
			Bridge:  c.Reflect.BridgeModule,
			Global:  c.Reflect.GlobalModule,
		},
	}
}

// TrampolineOptions returns the trampoline builder options.
func (c *Config) TrampolineOptions() trampoline.Options {
	return trampoline.Options{
		HostModule:       c.Trampoline.HostModule,
		Imports:          c.Trampoline.Imports,
		Corlib:           c.Trampoline.Corlib,
		IncludeNonPublic: c.Trampoline.IncludeNonPublic,
	}
}
