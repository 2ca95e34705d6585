package tool

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/cws-dev/cwstools/pkg/dax"
	"github.com/cws-dev/cwstools/pkg/simlog"
	"github.com/cws-dev/cwstools/pkg/simlog/store"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// tableStyle is the light box style with upper case headers.
var tableStyle = table.Style{
	Name:    "CustomStyleLight",
	Box:     table.StyleBoxLight,
	Color:   table.ColorOptionsDefault,
	HTML:    table.DefaultHTMLOptions,
	Options: table.OptionsDefault,
	Size:    table.SizeOptionsDefault,
	Title:   table.TitleOptionsDefault,
	Format: table.FormatOptions{
		Footer: text.FormatDefault,
		Header: text.FormatUpper,
		Row:    text.FormatDefault,
	},
}

func newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetStyle(tableStyle)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})

	return t
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// newDAGStatsTable returns the `dag stats` table.
func newDAGStatsTable(s dax.Stats) table.Writer {
	t := newTable("DAG")

	t.AppendRows([]table.Row{
		{"Files", s.Files},
		{"Tasks", s.Tasks},
		{"Edges", s.Edges},
		{"Entry tasks", s.EntryTasks},
		{"Exit tasks", s.ExitTasks},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Total bytes", s.TotalBytes},
		{"Total runtime", formatFloat(s.TotalRuntime)},
		{"Critical path", formatFloat(s.CriticalPath)},
		{"Critical path end", s.CriticalTaskID},
	})

	return t
}

// newSummaryTable returns the `log summary` table.
func newSummaryTable(name, settings string, s simlog.Summary) table.Writer {
	t := newTable(name)

	if settings != "" {
		t.AppendRow(table.Row{"Settings", settings})
		t.AppendSeparator()
	}

	for _, section := range simlog.Sections {
		t.AppendRow(table.Row{"Records " + section.String(), s.Records[section]})
	}

	t.AppendSeparator()

	for _, outcome := range simlog.Outcomes {
		t.AppendRow(table.Row{"Tasks " + outcome.String(), s.Outcomes[outcome]})
	}

	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Uploads", s.Uploads},
		{"Downloads", s.Downloads},
		{"VM time (s)", formatFloat(s.VMTime)},
		{"VM cost", formatFloat(s.VMCost)},
		{"Makespan (s)", formatFloat(s.Makespan)},
	})

	return t
}

// newRunsTable returns the `log runs` table. busy holds the number of VMs
// that ran tasks per run id.
func newRunsTable(runs []store.Run, busy map[string]int) table.Writer {
	t := table.NewWriter()
	t.SetStyle(tableStyle)
	t.AppendHeader(table.Row{"ID", "Name", "Imported at", "VMs", "Busy VMs", "Tasks", "Done", "Failed"})

	for _, run := range runs {
		t.AppendRow(table.Row{
			run.ID, run.Name, run.ImportedAt.Format(time.RFC3339), run.VMs, busy[run.ID], run.Tasks,
			run.Outcomes[simlog.OutcomeDone.String()] + run.Outcomes[simlog.OutcomeRetriedDone.String()],
			run.Outcomes[simlog.OutcomeFailed.String()] + run.Outcomes[simlog.OutcomeRetriedFailed.String()],
		})
	}

	return t
}

// writeGanttData writes series as gnuplot data blocks: a title comment,
// one `row start finish` line per bar and a blank line between blocks.
func writeGanttData(w io.Writer, series []simlog.Series) error {
	bw := bufio.NewWriter(w)

	for i, s := range series {
		if i > 0 {
			bw.WriteString("\n")
		}

		fmt.Fprintf(bw, "# %s\n", s.Title)

		for _, bar := range s.Bars {
			fmt.Fprintf(bw, "%d %s %s\n", bar.Row, formatFloat(bar.Start), formatFloat(bar.Finish))
		}
	}

	return bw.Flush()
}

// writeStorageData writes one `time readers writers read_speed write_speed`
// line per state.
func writeStorageData(w io.Writer, states []simlog.StorageState) error {
	bw := bufio.NewWriter(w)

	for _, s := range states {
		fmt.Fprintf(
			bw, "%s %d %d %s %s\n",
			formatFloat(s.Time), s.Readers, s.Writers, formatFloat(s.ReadSpeed), formatFloat(s.WriteSpeed),
		)
	}

	return bw.Flush()
}
