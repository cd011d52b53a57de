package stats

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RenderReport renders the before/after/delta breakdown as a plain table.
func RenderReport(before, after Snapshot) string {
	delta := Diff(before, after)

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Tier", "Total Before", "Total After", "ΔTotal", "Open Before", "Open After", "ΔOpen"})

	for _, tier := range Tiers {
		tw.AppendRow(table.Row{
			tier,
			before[tier].Total,
			after[tier].Total,
			signed(delta[tier].Total),
			before[tier].Open,
			after[tier].Open,
			signed(delta[tier].Open),
		})
	}

	configs := make([]table.ColumnConfig, 0, 7)
	for i := 1; i <= 7; i++ {
		configs = append(configs, table.ColumnConfig{
			Number:      i,
			Align:       text.AlignRight,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// RenderSnapshot renders a single snapshot as a plain table.
func RenderSnapshot(title string, s Snapshot) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle(title)
	tw.AppendHeader(table.Row{"Tier", "Total", "Open"})
	for _, tier := range Tiers {
		tw.AppendRow(table.Row{tier, s[tier].Total, s[tier].Open})
	}
	return tw.Render()
}

// Lines renders the before/after/delta breakdown as plain log lines, the
// format written to the audit log file.
func Lines(before, after Snapshot) []string {
	delta := Diff(before, after)
	out := make([]string, 0, len(Tiers))
	for _, tier := range Tiers {
		out = append(out, fmt.Sprintf("  %d★ total: %d → %d (%s), open: %d → %d (%s)",
			tier,
			before[tier].Total, after[tier].Total, signed(delta[tier].Total),
			before[tier].Open, after[tier].Open, signed(delta[tier].Open),
		))
	}
	return out
}

// SnapshotLines renders one snapshot as plain log lines.
func SnapshotLines(s Snapshot) []string {
	out := make([]string, 0, len(Tiers))
	for _, tier := range Tiers {
		out = append(out, fmt.Sprintf("  %d★ total=%d open=%d", tier, s[tier].Total, s[tier].Open))
	}
	return out
}

func signed(n int) string {
	return fmt.Sprintf("%+d", n)
}
