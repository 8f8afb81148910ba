package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/nb-tagger/pkg/service"
	"github.com/mattsolo1/nb-tagger/pkg/tagstore"
)

func NewTagsCmd(svc **service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Inspect and edit notebook tags",
	}
	cmd.AddCommand(newTagsListCmd(svc))
	cmd.AddCommand(newTagsAddCmd(svc))
	cmd.AddCommand(newTagsRmCmd(svc))
	cmd.AddCommand(newTagsRenameCmd(svc))
	cmd.AddCommand(newTagsCloudCmd(svc))
	return cmd
}

func newTagsListCmd(svc **service.Service) *cobra.Command {
	var (
		listJSON bool
		listYAML bool
	)

	cmd := &cobra.Command{
		Use:     "list [notebook-id]",
		Short:   "List tags per notebook",
		Aliases: []string{"ls"},
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			if len(args) == 1 {
				id = args[0]
			}
			m, err := (*svc).List(context.Background(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case listJSON:
				return outputJSON(out, m)
			case listYAML:
				return outputYAML(out, m)
			}
			if len(m) == 0 {
				fmt.Fprintln(out, "No tagged notebooks")
				return nil
			}
			printTagTable(cmd, m)
			return nil
		},
	}

	cmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&listYAML, "yaml", false, "Output as YAML")
	cmd.MarkFlagsMutuallyExclusive("json", "yaml")
	return cmd
}

func printTagTable(cmd *cobra.Command, m tagstore.Map) {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NOTEBOOK\tTAGS")
	for _, id := range ids {
		fmt.Fprintf(w, "%s\t%s\n", id, strings.Join(m[id], ", "))
	}
	w.Flush()
}

func newTagsAddCmd(svc **service.Service) *cobra.Command {
	return &cobra.Command{
		Use:   "add <notebook-id> <tag>...",
		Short: "Add tags to a notebook",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, err := (*svc).AddTags(context.Background(), args[0], args[1:]...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], strings.Join(tags, ", "))
			return nil
		},
	}
}

func newTagsRmCmd(svc **service.Service) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <notebook-id> <tag>",
		Short: "Remove a tag from a notebook",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, removed, err := (*svc).RemoveTag(context.Background(), args[0], args[1])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("notebook %s has no tag %q", args[0], args[1])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], strings.Join(tags, ", "))
			return nil
		},
	}
}

func newTagsRenameCmd(svc **service.Service) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Rename a tag in every notebook",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := (*svc).Rename(context.Background(), args[0], args[1])
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No notebooks tagged %q\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed: %s -> %s (%d notebooks)\n", args[0], args[1], n)
			return nil
		},
	}
}

func newTagsCloudCmd(svc **service.Service) *cobra.Command {
	var cloudJSON bool

	cmd := &cobra.Command{
		Use:   "cloud",
		Short: "Show every tag with its notebook count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cloud, err := (*svc).Cloud(context.Background())
			if err != nil {
				return err
			}
			if cloudJSON {
				return outputJSON(cmd.OutOrStdout(), cloud)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TAG\tNOTEBOOKS")
			for _, c := range cloud {
				fmt.Fprintf(w, "%s\t%d\n", c.Tag, c.Count)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&cloudJSON, "json", false, "Output as JSON")
	return cmd
}
