package metadata

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fxamacker/cbor/v2"

	"martianoff/dbridge/bridgeerr"
)

// Dump file extensions, in lookup order.
const (
	ExtCBOR = ".cbor"
	ExtTOML = ".toml"
)

var dumpExtensions = []string{ExtCBOR, ExtTOML}

// Load reads a metadata dump. The format is chosen by file extension.
func Load(path string) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, bridgeerr.NewLoadError(path, "cannot read metadata", err)
	}

	var m *Module
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtCBOR:
		m, err = DecodeCBOR(data)
	case ExtTOML:
		m, err = DecodeTOML(data)
	default:
		return nil, bridgeerr.NewLoadError(path, "unknown metadata format (want .cbor or .toml)", nil)
	}
	if err != nil {
		return nil, bridgeerr.NewLoadError(path, "cannot decode metadata", err)
	}

	if m.Name == "" {
		m.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := m.Validate(); err != nil {
		return nil, bridgeerr.NewLoadError(path, "invalid metadata", err)
	}
	return m, nil
}

// DecodeCBOR decodes a module from a CBOR metadata dump.
func DecodeCBOR(data []byte) (*Module, error) {
	var m Module
	if err := cbor.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("metadata: unmarshal module: %w", err)
	}
	return &m, nil
}

// DecodeTOML decodes a module from a TOML metadata descriptor.
func DecodeTOML(data []byte) (*Module, error) {
	var m Module
	if _, err := toml.Decode(string(data), &m); err != nil {
		return nil, fmt.Errorf("metadata: parse module: %w", err)
	}
	return &m, nil
}

// Resolve turns a module reference into a dump path. A reference naming an
// existing file is returned as is; otherwise <dir>/<ref>.cbor and
// <dir>/<ref>.toml are tried in each search path.
func Resolve(ref string, searchPaths []string) (string, error) {
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		return ref, nil
	}

	for _, dir := range searchPaths {
		for _, ext := range dumpExtensions {
			candidate := filepath.Join(dir, ref+ext)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
	}
	return "", bridgeerr.NewLoadError(ref, fmt.Sprintf("no metadata dump found in %s", strings.Join(searchPaths, ", ")), fs.ErrNotExist)
}

// ResolveIn finds <dir>/<base>/<base>.{cbor,toml}.
func ResolveIn(inputDir, base string) (string, error) {
	return Resolve(base, []string{filepath.Join(inputDir, base)})
}

// Validate checks the structural invariants decoders cannot express.
func (m *Module) Validate() error {
	var errs []error
	for i := range m.Types {
		t := &m.Types[i]
		if t.Name == "" {
			errs = append(errs, fmt.Errorf("type #%d has no name", i))
			continue
		}
		where := m.Ref(t).FullName()
		if t.DeclaringType != nil {
			if err := validateRef(*t.DeclaringType); err != nil {
				errs = append(errs, fmt.Errorf("%s: declaring type: %w", where, err))
			}
		}
		for _, f := range t.Fields {
			if err := validateRef(f.Type); err != nil {
				errs = append(errs, fmt.Errorf("%s.%s: %w", where, f.Name, err))
			}
		}
		for _, meth := range t.Methods {
			if meth.Name == "" {
				errs = append(errs, fmt.Errorf("%s: method with no name", where))
			}
			if meth.ReturnType != nil {
				if err := validateRef(*meth.ReturnType); err != nil {
					errs = append(errs, fmt.Errorf("%s.%s: return type: %w", where, meth.Name, err))
				}
			}
			errs = append(errs, validateParams(where+"."+meth.Name, meth.Parameters)...)
		}
		for _, c := range t.Constructors {
			errs = append(errs, validateParams(where+"."+ConstructorName, c.Parameters)...)
		}
	}
	m.reindex()
	return errors.Join(errs...)
}

func validateParams(where string, params []ParameterDescriptor) []error {
	var errs []error
	for i, p := range params {
		if err := validateRef(p.Type); err != nil {
			errs = append(errs, fmt.Errorf("%s: parameter %d: %w", where, i, err))
		}
	}
	return errs
}

func validateRef(r TypeRef) error {
	if r.IsComposite() {
		if r.Element == nil {
			return errors.New("array, by-ref or pointer type without element")
		}
		return validateRef(*r.Element)
	}
	if r.Name == "" {
		return errors.New("type reference has no name")
	}
	return nil
}
