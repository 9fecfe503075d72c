package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Summary renders the end-of-run summary: a headline and one table row per
// produced output.
func Summary(run *Run) string {
	var b strings.Builder
	b.WriteString("Processing complete!\n")
	fmt.Fprintf(&b, "Processed videos for %d recipients:\n", len(run.Entries))
	if len(run.Entries) > 0 {
		b.WriteString(RenderTable(run.Entries))
		b.WriteString("\n")
	}
	if len(run.Failed) > 0 {
		fmt.Fprintf(&b, "Failed: %s\n", strings.Join(run.Failed, ", "))
	}
	return b.String()
}

// RenderTable renders entries as a table with a right-aligned count column.
func RenderTable(entries []Entry) string {
	withURL := false
	for _, e := range entries {
		if e.URL != "" {
			withURL = true
			break
		}
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := table.Row{"Recipient", "Videos", "Output"}
	if withURL {
		header = append(header, "URL")
	}
	tw.AppendHeader(header)

	for _, e := range entries {
		row := table.Row{e.GroupKey, strconv.Itoa(e.VideoCount), e.OutputPath}
		if withURL {
			row = append(row, e.URL)
		}
		tw.AppendRow(row)
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
	})

	return tw.Render()
}

// RenderRuns renders one row per run, newest first as given.
func RenderRuns(runs []*Run) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Run", "Started", "Duration", "Produced", "Failed", "Unclassified"})

	for _, r := range runs {
		tw.AppendRow(table.Row{
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Duration().Round(time.Second).String(),
			strconv.Itoa(len(r.Entries)),
			strconv.Itoa(len(r.Failed)),
			strconv.Itoa(len(r.Unclassified)),
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	return tw.Render()
}
