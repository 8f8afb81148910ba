package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/nb-tagger/internal/tui/dialog"
	"github.com/mattsolo1/nb-tagger/pkg/render"
	"github.com/mattsolo1/nb-tagger/pkg/service"
)

func NewImportCmd(svc **service.Service) *cobra.Command {
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Merge tags from an exported JSON file",
		Long: `Merge tags from a file written by 'nbtag export'. Notebooks in the
file replace their stored tags; other notebooks are left alone.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer f.Close()

			var prompter render.Prompter
			if assumeYes {
				prompter = dialog.NewAssume(true, cmd.OutOrStdout())
			} else {
				prompter = dialog.NewTerminal(cmd.InOrStdin(), cmd.OutOrStdout(), (*svc).Log())
			}
			return (*svc).Import(context.Background(), f, prompter)
		},
	}

	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Import without asking for confirmation")
	return cmd
}
