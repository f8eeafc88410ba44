package output

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/MyCarrier-DevOps/cochange/internal/domain"
)

// shortHashLen is how many characters of a reset commit hash a summary shows.
const shortHashLen = 10

// WriteSummary prints, for every era of graph, its top files by commit count.
func (w *Writer) WriteSummary(graph *domain.FileGraph, top int) error {
	if err := w.WriteLine("%s: %s commits analyzed, %d era(s)",
		graph.Repo, humanize.Comma(int64(graph.TotalCommitsAnalyzed)), len(graph.Eras)); err != nil {
		return err
	}

	for _, era := range graph.Eras {
		if _, err := fmt.Fprintln(w.out, renderEra(era, top)); err != nil {
			return err
		}
	}
	return nil
}

func renderEra(era domain.Era, top int) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Format.Header = text.FormatDefault
	tbl.Style().Format.Footer = text.FormatDefault
	tbl.SetTitle(eraTitle(era))
	tbl.SetColumnConfigs(summaryColumns())
	tbl.AppendHeader(table.Row{"#", "Path", "Commits", "+", "-", "Partners", "Coupling"})

	nodes := era.Nodes
	if top > 0 && len(nodes) > top {
		nodes = nodes[:top]
	}

	for i, n := range nodes {
		coupling := 0
		for _, e := range n.Edges {
			coupling += e.Weight
		}
		tbl.AppendRow(table.Row{
			i + 1,
			n.Path,
			humanize.Comma(int64(n.CommitCount)),
			humanize.Comma(int64(n.Additions)),
			humanize.Comma(int64(n.Deletions)),
			len(n.Edges),
			humanize.Comma(int64(coupling)),
		})
	}

	tbl.AppendFooter(table.Row{"", fmt.Sprintf("Total: %d files", len(era.Nodes))})
	return tbl.Render()
}

// summaryColumns pins alignments so empty eras render like populated ones.
func summaryColumns() []table.ColumnConfig {
	cols := []table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignRight},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignLeft, AlignFooter: text.AlignLeft},
	}
	for n := 3; n <= 7; n++ {
		cols = append(cols, table.ColumnConfig{Number: n, Align: text.AlignRight, AlignHeader: text.AlignRight})
	}
	return cols
}

func eraTitle(era domain.Era) string {
	title := fmt.Sprintf("Era %d (%s commits)", era.EraIndex, humanize.Comma(int64(era.CommitsInEra)))
	if era.ResetCommit != nil {
		reset := *era.ResetCommit
		if len(reset) > shortHashLen {
			reset = reset[:shortHashLen]
		}
		title += " reset at " + reset
	}
	return title
}
