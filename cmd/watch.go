package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/nb-tagger/pkg/service"
	"github.com/mattsolo1/nb-tagger/pkg/tagger"
	"github.com/mattsolo1/nb-tagger/pkg/tree"
)

func NewWatchCmd(svc **service.Service) *cobra.Command {
	var (
		location string
		outPath  string
	)

	cmd := &cobra.Command{
		Use:   "watch <snapshot.html>",
		Short: "Keep the overlay rendered while a saved page changes",
		Long: `Watch a saved page and re-render the overlay whenever it is rewritten.
Bursts of writes are debounced (see the 'debounce' setting).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open snapshot: %w", err)
			}
			doc, err := tree.Parse(f)
			f.Close()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			page := &tagger.Page{Doc: doc, Location: location}
			session := s.NewSession(page, nil, nil, func(p *tagger.Page) {
				if err := writeDoc(cmd.OutOrStdout(), outPath, p.Doc); err != nil {
					s.Log().WithError(err).Warn("write output failed")
					return
				}
				s.Log().Info("overlay rendered")
			})

			go func() {
				if err := session.WatchFile(ctx, args[0]); err != nil && !errors.Is(err, context.Canceled) {
					s.Log().WithError(err).Error("watch stopped")
					stop()
				}
			}()

			if err := session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&location, "url", "/", "Navigation path the snapshot was taken at")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Write each render to a file instead of stdout")
	return cmd
}
