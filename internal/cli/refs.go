package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/liuji1031/visualize-architecture/pkg/config"
	"github.com/liuji1031/visualize-architecture/pkg/store"
)

// refsCommand creates the refs command for checking config references.
func (c *CLI) refsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refs [config.yaml]",
		Short: "Check that every referenced config file exists",
		Long: `Check that every referenced config file exists.

The refs command walks the configuration tree starting at the given file,
following the config field of every composite module, and reports which
referenced files resolve and which are missing. Missing references render
as unresolved placeholder nodes, so this is the quickest way to verify a
model folder is complete before uploading it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRefs(cmd.Context(), args[0])
		},
	}
}

// runRefs walks the reference tree and prints the result.
func (c *CLI) runRefs(ctx context.Context, input string) error {
	prog := newProgress(c.Logger)

	found, missing, err := config.FindReferences(ctx, store.OS{}, input)
	if err != nil {
		return fmt.Errorf("check references in %s: %w", input, err)
	}
	prog.done(fmt.Sprintf("Checked %d references", len(found)+len(missing)))

	if len(found) == 0 && len(missing) == 0 {
		printInfo("No config references in %s", input)
		return nil
	}

	for _, ref := range found {
		printSuccess("%s", ref)
	}
	for _, ref := range missing {
		printError("%s", ref)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%d of %d referenced files missing", len(missing), len(found)+len(missing))
	}
	printDetail("All references resolve")
	return nil
}
