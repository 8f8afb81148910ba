package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"github.com/mattsolo1/nb-tagger/pkg/service"
	"github.com/mattsolo1/nb-tagger/pkg/tree"
)

func NewRenderCmd(svc **service.Service) *cobra.Command {
	var (
		location string
		filter   string
		outPath  string
	)

	cmd := &cobra.Command{
		Use:   "render <snapshot.html>",
		Short: "Render the tag overlay into a saved page",
		Long: `Run one render cycle over a saved NotebookLM page and print the result.

Examples:
  nbtag render home.html --url /                       # Dashboard with tag cloud
  nbtag render home.html --url / --filter research     # Only notebooks tagged research
  nbtag render nb.html --url /notebook/abc -o out.html # Detail page chips`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open snapshot: %w", err)
			}
			defer f.Close()

			doc, err := (*svc).RenderSnapshot(context.Background(), f, location, filter)
			if err != nil {
				return err
			}
			return writeDoc(cmd.OutOrStdout(), outPath, doc)
		},
	}

	cmd.Flags().StringVar(&location, "url", "/", "Navigation path the snapshot was taken at")
	cmd.Flags().StringVar(&filter, "filter", "", "Select this tag in the cloud")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

// writeDoc renders doc to path, or to w when path is empty.
func writeDoc(w io.Writer, path string, doc *html.Node) error {
	var buf bytes.Buffer
	if err := tree.Render(&buf, doc); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	if path == "" {
		_, err := w.Write(buf.Bytes())
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
