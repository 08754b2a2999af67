package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"martianoff/dbridge/bridgeerr"
	"martianoff/dbridge/internal/outsum"
)

func newVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <output-directory>",
		Short: "Verify generated files match " + outsum.FileName,
		Long: `Re-hash every file listed in the output directory's ` + outsum.FileName + `
and report files that were modified or removed since generation.`,
		Args: exactArgs(1),
		RunE: runVerify,
	}
}

func runVerify(cmd *cobra.Command, args []string) error {
	dir := args[0]
	out := cmd.OutOrStdout()

	err := outsum.Verify(dir)
	if err == nil {
		fmt.Fprintf(out, "all files in %s verified\n", dir)
		return nil
	}

	var multi *bridgeerr.MultiError
	if !errors.As(err, &multi) {
		return err
	}
	for _, e := range multi.Errors {
		var mismatch *outsum.HashMismatchError
		if errors.As(e, &mismatch) {
			fmt.Fprintf(out, "FAILED: %s\n", mismatch.Path)
			fmt.Fprintf(out, "  Expected: %s\n", mismatch.Expected)
			fmt.Fprintf(out, "  Actual:   %s\n", mismatch.Actual)
		} else {
			fmt.Fprintf(out, "MISSING: %v\n", e)
		}
	}
	return fmt.Errorf("%d file(s) failed verification", len(multi.Errors))
}
