package bridgeerr_test

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martianoff/dbridge/bridgeerr"
)

func TestUnsupportedError(t *testing.T) {
	err := bridgeerr.NewUnsupported(bridgeerr.ConstructGeneric, "List`1", "generics aren't implemented")
	assert.Equal(t, bridgeerr.TypeUnsupported, err.Type())
	assert.Equal(t, "[UnsupportedConstruct] List`1: generics aren't implemented", err.Error())
}

func TestUnsupportedMember(t *testing.T) {
	err := bridgeerr.NewUnsupportedMember(bridgeerr.ConstructJaggedArray, "Grid", "Cells", "jagged arrays are not marshalled")
	assert.Equal(t, "Cells", err.Member)
	assert.Equal(t, "[UnsupportedConstruct] Grid.Cells: jagged arrays are not marshalled", err.Error())
}

func TestEmissionError(t *testing.T) {
	err := bridgeerr.NewEmissionError("Foostatic", "Ns.Barstatic", "make", "stack underflow")
	assert.Equal(t, bridgeerr.TypeEmission, err.Type())
	assert.Equal(t, "[EmissionError] Foostatic: Ns.Barstatic::make: stack underflow", err.Error())
}

func TestWrapEmission(t *testing.T) {
	cause := errors.New("missing ret")
	err := bridgeerr.WrapEmission("Foostatic", "Barstatic", "unpin", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "Barstatic::unpin: invalid trampoline: missing ret")
}

func TestLoadError(t *testing.T) {
	err := bridgeerr.NewLoadError("Foo.cbor", "cannot read metadata", fs.ErrNotExist)
	assert.Equal(t, bridgeerr.TypeLoad, err.Type())
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), "[LoadError] Foo.cbor: cannot read metadata")
}

func TestConfigError(t *testing.T) {
	err := bridgeerr.NewConfigError("dbridge.toml", "parse error", nil)
	assert.Equal(t, "[ConfigError] dbridge.toml: parse error", err.Error())
}

func TestMultiError(t *testing.T) {
	e1 := bridgeerr.NewEmissionError("", "A", "", "error 1")
	e2 := bridgeerr.NewEmissionError("", "B", "", "error 2")
	multi := &bridgeerr.MultiError{Errors: []error{e1, e2}}

	assert.Equal(t, bridgeerr.TypeEmission, multi.Type())
	errMsg := multi.Error()
	assert.Equal(t, "generation failed with 2 error(s):\n  [EmissionError] A: error 1\n  [EmissionError] B: error 2", errMsg)

	var target *bridgeerr.EmissionError
	require.True(t, errors.As(multi, &target))
	assert.Equal(t, "A", target.TypeName)
}

func TestMultiErrorOrNil(t *testing.T) {
	var m bridgeerr.MultiError
	assert.NoError(t, m.OrNil())
	assert.Equal(t, bridgeerr.ErrorType("MultiError"), m.Type())

	m.Errors = append(m.Errors, errors.New("plain"))
	assert.Error(t, m.OrNil())
	assert.Equal(t, bridgeerr.TypeMulti, m.Type())

	m.Errors = append(m.Errors, bridgeerr.NewLoadError("x.cbor", "cannot read metadata", nil))
	assert.Equal(t, bridgeerr.TypeLoad, m.Type())
}
