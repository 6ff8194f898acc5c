package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/yohannes916/mismartera/pkg/session"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [file]",
	Short: "render a session snapshot file as a table",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		var snap session.Snapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetTitle("session %s (active=%v)", snap.SessionDate, snap.SessionActive)
		t.AppendHeader(table.Row{"symbol", "interval", "derived", "bars", "quality", "gaps", "indicators"})

		symbols := make([]string, 0, len(snap.Symbols))
		for s := range snap.Symbols {
			symbols = append(symbols, s)
		}
		sort.Strings(symbols)

		for _, symbol := range symbols {
			ss := snap.Symbols[symbol]

			intervals := make([]string, 0, len(ss.Bars))
			for interval := range ss.Bars {
				intervals = append(intervals, interval)
			}
			sort.Strings(intervals)

			for _, interval := range intervals {
				bars := ss.Bars[interval]
				t.AppendRow(table.Row{
					symbol,
					interval,
					bars.Derived,
					len(bars.Bars),
					fmt.Sprintf("%.1f%%", bars.Quality),
					len(bars.Gaps),
					len(ss.Indicators),
				})
			}
		}

		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
}
