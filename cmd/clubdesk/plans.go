package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"clubdesk/internal/entitlements"
)

func newPlansCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "Print the plan comparison table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writePlanTable(cmd.OutOrStdout(), entitlements.New(nil, nil, nil).PlanComparison())
		},
	}
}

func writePlanTable(out io.Writer, rows []entitlements.PlanSummary) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	header := []string{"FEATURE"}
	for _, row := range rows {
		header = append(header, strings.ToUpper(row.DisplayName))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	line := func(label string, cell func(entitlements.PlanSummary) string) {
		cells := []string{label}
		for _, row := range rows {
			cells = append(cells, cell(row))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	line("Monthly", func(r entitlements.PlanSummary) string { return r.PriceLabel })
	line("Yearly", func(r entitlements.PlanSummary) string { return r.YearlyLabel })
	line("Members", func(r entitlements.PlanSummary) string {
		if r.MemberLimit == nil {
			return "unlimited"
		}
		return fmt.Sprintf("%d", *r.MemberLimit)
	})
	if len(rows) > 0 {
		for i, fs := range rows[0].Features {
			idx := i
			line(fs.Name, func(r entitlements.PlanSummary) string {
				if r.Features[idx].Enabled {
					return "yes"
				}
				return "-"
			})
		}
	}
	return tw.Flush()
}
