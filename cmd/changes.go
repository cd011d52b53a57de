package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var changesLimit int

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "List recent catalog change records",
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

		changes, err := st.ListChanges(ctx, changesLimit)
		if err != nil {
			return eris.Wrap(err, "list changes")
		}

		tw := table.NewWriter()
		tw.SetStyle(table.StyleRounded)
		tw.AppendHeader(table.Row{"ID", "Name", "Fields", "Tier", "Open", "At"})
		for _, c := range changes {
			tier, open := "", ""
			if c.Tier != nil {
				tier = fmt.Sprintf("%d→%d", c.Tier.From, c.Tier.To)
			}
			if c.Open != nil {
				open = fmt.Sprintf("%v→%v", c.Open.From, c.Open.To)
			}
			tw.AppendRow(table.Row{
				c.ID, c.Name, c.Summary(), tier, open,
				c.Timestamp.Format("2006-01-02 15:04"),
			})
		}
		fmt.Println(tw.Render())
		return nil
	},
}

func init() {
	changesCmd.Flags().IntVar(&changesLimit, "limit", 50, "maximum change records to list")
	rootCmd.AddCommand(changesCmd)
}
