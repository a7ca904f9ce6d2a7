package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/linanwx/companion/content"
)

var diffCmd = &cobra.Command{
	Use:   "diff <file> [modified-file]",
	Short: "Show a file against modified text as a diff view",
	Long: `Render the diff view companion shows for proposed edits. The original
side is served as a read-only virtual document. The modified text is read
from the second file, or from stdin when it is omitted.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	original, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	var modified []byte
	if len(args) == 2 {
		modified, err = os.ReadFile(args[1])
	} else {
		modified, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return err
	}

	reg := content.NewRegistry()
	if err := reg.Register(content.DiffViewScheme, content.DiffProvider); err != nil {
		return err
	}
	out, err := content.RenderDiff(cmd.Context(), reg, content.DiffURI(filepath.Base(args[0]), string(original)), string(modified))
	if err != nil {
		return err
	}
	if out == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "No changes.")
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

// renderDiff shows original against modified through the extension's
// content registry.
func renderDiff(ctx context.Context, ext *Extension, name, original, modified string) (string, error) {
	out, err := content.RenderDiff(ctx, ext.Content, content.DiffURI(name, original), modified)
	if err != nil {
		return "", err
	}
	if out == "" {
		return "No changes.\n", nil
	}
	return out, nil
}
