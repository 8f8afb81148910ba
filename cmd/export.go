package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/nb-tagger/pkg/bulk"
	"github.com/mattsolo1/nb-tagger/pkg/service"
)

func NewExportCmd(svc **service.Service) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all tags to a dated JSON file",
		Long: `Write every notebook's tags to <prefix>-YYYY-MM-DD.json.

Examples:
  nbtag export              # Write to the current directory
  nbtag export -o ~/backup  # Write into ~/backup`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				outDir = wd
			}
			d := &bulk.DirDownloader{Dir: outDir}
			if _, err := (*svc).Export(context.Background(), d); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported tags to %s\n", d.Saved)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "output", "o", "", "Directory to write the export into")
	return cmd
}
