package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/heritagepubs/pubsync/internal/model"
	"github.com/heritagepubs/pubsync/internal/normalize"
	"github.com/heritagepubs/pubsync/internal/stats"
)

var statsFile string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report per-tier catalog statistics",
	Long:  "Prints the catalog's per-tier totals and open counts. With --file, also reports the batch's own breakdown for a dry-run comparison without touching the catalog.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		snapshot, err := st.ListPubs(ctx)
		if err != nil {
			return eris.Wrap(err, "list pubs")
		}
		pubs := make([]*model.Pub, len(snapshot))
		for i := range snapshot {
			pubs[i] = &snapshot[i]
		}
		fmt.Println(stats.RenderSnapshot("Catalog", stats.Compute(pubs)))

		if statsFile != "" {
			records, err := readBatch(statsFile)
			if err != nil {
				return err
			}
			venues := make([]model.Venue, 0, len(records))
			for _, raw := range records {
				v, _ := normalize.Record(raw)
				venues = append(venues, v)
			}
			fmt.Println(stats.RenderSnapshot("Batch", stats.ComputeVenues(venues)))
		}

		return nil
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsFile, "file", "", "scraped JSON batch to summarize alongside the catalog")
	rootCmd.AddCommand(statsCmd)
}
