// Package registry tracks the output units of one generation run.
//
// Each namespace seen during enumeration owns exactly one output unit, a D
// package file created lazily on first use. The registry also remembers the
// package name derived for every assembly referenced by the module, so field
// comments can name the package a foreign type comes from.
//
// Not thread-safe: a registry belongs to a single-threaded generation pass.
package registry

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"martianoff/dbridge/bridgeerr"
	"martianoff/dbridge/internal/naming"
)

// AssemblyInfo describes how a referenced assembly maps to a D package.
type AssemblyInfo struct {
	Assembly      string // display name as recorded in metadata
	PackageName   string // D package: "Acme_Geometry"
	FromDllPrefix string // qualifier for symbols imported from it
}

// HeaderFunc writes the preamble of a freshly created unit.
type HeaderFunc func(u *Unit)

// Registry maps namespaces to output units and assemblies to package info.
type Registry struct {
	outputDir   string
	packageName string
	header      HeaderFunc
	logger      *zap.Logger

	// units maps namespace ("" for the global namespace) to its unit
	units map[string]*Unit

	// order records namespaces in creation order for deterministic flushing
	order []string

	// assemblies maps simple assembly name to its package info
	assemblies map[string]*AssemblyInfo

	closed bool
}

// New creates a registry writing units under outputDir/packageName.
func New(outputDir, packageName string, header HeaderFunc) *Registry {
	return &Registry{
		outputDir:   outputDir,
		packageName: packageName,
		header:      header,
		logger:      Logger(),
		units:       make(map[string]*Unit),
		assemblies:  make(map[string]*AssemblyInfo),
	}
}

// Unit returns the unit for a namespace, creating its file on first use.
func (r *Registry) Unit(namespace string) (*Unit, error) {
	if u, ok := r.units[namespace]; ok {
		return u, nil
	}
	if r.closed {
		return nil, fmt.Errorf("registry: unit %q requested after close", namespace)
	}

	path := filepath.Join(r.outputDir, r.packageName, naming.NamespaceToModulePath(namespace))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}

	u := &Unit{
		Namespace: namespace,
		Module:    naming.ModuleName(r.packageName, namespace),
		Path:      path,
		file:      f,
		w:         bufio.NewWriter(f),
	}
	r.logger.Debug("new output unit",
		zap.String("module", u.Module),
		zap.String("path", path))

	r.units[namespace] = u
	r.order = append(r.order, namespace)
	if r.header != nil {
		r.header(u)
	}
	return u, nil
}

// Units returns all units in creation order.
func (r *Registry) Units() []*Unit {
	units := make([]*Unit, 0, len(r.order))
	for _, ns := range r.order {
		units = append(units, r.units[ns])
	}
	return units
}

// Assembly returns the package info for an assembly, computing it on first
// request.
func (r *Registry) Assembly(display string) *AssemblyInfo {
	key := naming.PackageName(display)
	if info, ok := r.assemblies[key]; ok {
		return info
	}
	info := &AssemblyInfo{
		Assembly:      display,
		PackageName:   key,
		FromDllPrefix: naming.FromDllPrefix(key),
	}
	r.assemblies[key] = info
	return info
}

// Assemblies returns the known assemblies sorted by package name.
func (r *Registry) Assemblies() []*AssemblyInfo {
	result := make([]*AssemblyInfo, 0, len(r.assemblies))
	for _, info := range r.assemblies {
		result = append(result, info)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].PackageName < result[j].PackageName
	})
	return result
}

// Close flushes and closes every unit exactly once. Later calls are no-ops.
func (r *Registry) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var errs bridgeerr.MultiError
	for _, u := range r.Units() {
		if err := u.close(); err != nil {
			errs.Errors = append(errs.Errors, err)
		}
	}
	return errs.OrNil()
}

// Files returns the paths of all units, relative to the output directory.
func (r *Registry) Files() []string {
	files := make([]string, 0, len(r.order))
	for _, u := range r.Units() {
		rel, err := filepath.Rel(r.outputDir, u.Path)
		if err != nil {
			rel = u.Path
		}
		files = append(files, rel)
	}
	return files
}
