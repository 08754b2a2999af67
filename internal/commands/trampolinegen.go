package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"martianoff/dbridge/internal/metadata"
	"martianoff/dbridge/internal/trampoline"
)

// NewTrampolinegenCommand creates the trampoline generator.
func NewTrampolinegenCommand() *cobra.Command {
	return newRoot(
		"trampolinegen <base-name> <input-directory> <output-directory>",
		"Generate D wrappers with CLR trampolines",
		`Generate a D wrapper module and its companion CLR module.

Reads <input-directory>/<base-name>/<base-name>.{cbor,toml} and writes
<output-directory>/<lowercase base-name>.d and
<output-directory>/<base-name>static.il.

Examples:
  trampolinegen Acme metadata out
  trampolinegen verify out

A base name of verify or version is passed after --:
  trampolinegen -- verify metadata out`,
		3,
		runTrampolinegen,
	)
}

func runTrampolinegen(cmd *cobra.Command, flags *globalFlags, args []string) error {
	base, inputDir, outputDir := args[0], args[1], args[2]

	cfg, err := flags.loadConfig()
	if err != nil {
		return err
	}
	path, err := metadata.ResolveIn(inputDir, base)
	if err != nil {
		return err
	}
	m, err := metadata.Load(path)
	if err != nil {
		return err
	}

	result, files, err := trampoline.Generate(m, base, outputDir, cfg.TrampolineOptions(),
		cfg.Trampoline.WrapperExtension, cfg.Trampoline.CompanionExtension)
	if err != nil {
		return fmt.Errorf("generating %s: %w", base, err)
	}
	if err := recordChecksums(cfg, outputDir, []string{files.Wrapper, files.Companion}); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s, %s: %d type(s), %d trampoline(s), %d skipped\n",
		files.Wrapper, files.Companion, result.Types, result.Trampolines, len(result.Skipped))
	return nil
}
