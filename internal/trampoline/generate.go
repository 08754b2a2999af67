package trampoline

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"martianoff/dbridge/internal/cil"
	"martianoff/dbridge/internal/metadata"
)

// Files names the two outputs of a run, relative to the output directory.
type Files struct {
	Wrapper   string // <lower base>.d
	Companion string // <base>static.il
}

// FileNames returns the output names for baseName with the given extensions.
func FileNames(r *Result, wrapperExt, companionExt string) Files {
	return Files{
		Wrapper:   r.WrapperName + "." + wrapperExt,
		Companion: r.Companion.Name + "." + companionExt,
	}
}

// Generate builds src and writes both outputs to outputDir. The companion
// module is validated before anything is written, so a structural failure
// leaves no partial output behind.
func Generate(src *metadata.Module, baseName, outputDir string, opts Options, wrapperExt, companionExt string) (*Result, Files, error) {
	result, err := Build(src, baseName, opts)
	if err != nil {
		return nil, Files{}, err
	}
	files := FileNames(result, wrapperExt, companionExt)

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, Files{}, fmt.Errorf("creating output dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outputDir, files.Wrapper), []byte(result.Wrapper), 0o644); err != nil {
		return nil, Files{}, fmt.Errorf("writing wrapper: %w", err)
	}

	companionPath := filepath.Join(outputDir, files.Companion)
	f, err := os.Create(companionPath)
	if err != nil {
		return nil, Files{}, fmt.Errorf("creating companion module: %w", err)
	}
	if err := cil.Write(f, result.Companion); err != nil {
		f.Close()
		os.Remove(companionPath)
		return nil, Files{}, err
	}
	if err := f.Close(); err != nil {
		return nil, Files{}, fmt.Errorf("closing companion module: %w", err)
	}

	Logger().Info("trampolines written",
		zap.String("wrapper", files.Wrapper),
		zap.String("companion", files.Companion),
		zap.Int("types", result.Types),
		zap.Int("trampolines", result.Trampolines),
		zap.Int("skipped", len(result.Skipped)))
	return result, files, nil
}
