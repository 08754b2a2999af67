package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"martianoff/dbridge/internal/declgen"
	"martianoff/dbridge/internal/metadata"
)

// NewBridgegenCommand creates the reflective stub generator.
func NewBridgegenCommand() *cobra.Command {
	return newRoot(
		"bridgegen <module-reference> <output-directory>",
		"Generate reflective D declarations from .NET metadata",
		`Generate one package.d per namespace of a .NET module.

Static methods get bodies that call through the CLR bridge by reflection.
The module reference is a path to a .cbor or .toml metadata dump, or a bare
name looked up in the configured search paths.

Examples:
  bridgegen Acme.Geometry out
  bridgegen dumps/Calc.toml out
  bridgegen verify out

A module literally named verify or version is passed after --:
  bridgegen -- verify out`,
		2,
		runBridgegen,
	)
}

func runBridgegen(cmd *cobra.Command, flags *globalFlags, args []string) error {
	ref, outputDir := args[0], args[1]

	cfg, err := flags.loadConfig()
	if err != nil {
		return err
	}
	path, err := metadata.Resolve(ref, cfg.Metadata.SearchPaths)
	if err != nil {
		return err
	}
	m, err := metadata.Load(path)
	if err != nil {
		return err
	}

	report, err := declgen.Generate(m, outputDir, cfg.DeclOptions())
	if err != nil {
		return fmt.Errorf("generating %s: %w", m.Name, err)
	}
	if err := recordChecksums(cfg, outputDir, report.Files); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "package %s: %d type(s) in %d file(s), %d skipped\n",
		report.PackageName, report.Types, len(report.Files), len(report.Skipped))
	for _, asm := range report.Assemblies {
		fmt.Fprintf(cmd.OutOrStdout(), "  references %s\n", asm)
	}
	return nil
}
