package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/revdiff/pkg/textdiff"
)

const (
	chartWidth  = "100%"
	chartHeight = "500px"
	xAxisRotate = 45
	colorAdded  = "#91cc75"
	colorRemove = "#ee6666"
)

// BatchRecord is the serialized form of one batch item.
type BatchRecord struct {
	Index  int                  `json:"index"            yaml:"index"`
	Name   string               `json:"name,omitempty"   yaml:"name,omitempty"`
	Result *textdiff.DiffResult `json:"result,omitempty" yaml:"result,omitempty"`
	Error  string               `json:"error,omitempty"  yaml:"error,omitempty"`
}

// BatchSummary aggregates a batch.
type BatchSummary struct {
	Total        int `json:"total"         yaml:"total"`
	Failed       int `json:"failed"        yaml:"failed"`
	Significant  int `json:"significant"   yaml:"significant"`
	LinesAdded   int `json:"lines_added"   yaml:"lines_added"`
	LinesRemoved int `json:"lines_removed" yaml:"lines_removed"`
}

// BatchReport is the serialized form of a batch run.
type BatchReport struct {
	RunID     string        `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Threshold int           `json:"threshold"        yaml:"threshold"`
	Summary   BatchSummary  `json:"summary"          yaml:"summary"`
	Items     []BatchRecord `json:"items"            yaml:"items"`
}

// NewBatchReport pairs items with their names. names may be shorter than
// items; missing names stay empty.
func NewBatchReport(runID string, threshold int, names []string, items []textdiff.BatchItem) BatchReport {
	report := BatchReport{
		RunID:     runID,
		Threshold: threshold,
		Items:     make([]BatchRecord, len(items)),
	}

	report.Summary.Total = len(items)

	for i, item := range items {
		rec := BatchRecord{Index: i, Result: item.Result}

		if i < len(names) {
			rec.Name = names[i]
		}

		if item.Err != nil {
			rec.Error = item.Err.Error()
			rec.Result = nil
			report.Summary.Failed++
		} else if item.Result != nil {
			if item.Result.IsSignificant {
				report.Summary.Significant++
			}

			report.Summary.LinesAdded += item.Result.LinesAdded
			report.Summary.LinesRemoved += item.Result.LinesRemoved
		}

		report.Items[i] = rec
	}

	return report
}

func (r BatchRecord) label() string {
	if r.Name != "" {
		return r.Name
	}

	return "#" + strconv.Itoa(r.Index)
}

// WriteBatchText writes the batch as a table with a totals footer.
func WriteBatchText(w io.Writer, report BatchReport) error {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"#", "Name", "Summary", "Lines +", "Lines -", "Significant"})

	for _, rec := range report.Items {
		if rec.Result == nil {
			tbl.AppendRow(table.Row{rec.Index, rec.label(), color.RedString("error: %s", rec.Error), "", "", ""})

			continue
		}

		tbl.AppendRow(table.Row{
			rec.Index, rec.label(), rec.Result.Summary,
			rec.Result.LinesAdded, rec.Result.LinesRemoved, rec.Result.IsSignificant,
		})
	}

	s := report.Summary
	tbl.AppendFooter(table.Row{
		"", fmt.Sprintf("Total: %d", s.Total), fmt.Sprintf("%d failed", s.Failed),
		s.LinesAdded, s.LinesRemoved, s.Significant,
	})

	_, err := fmt.Fprintln(w, tbl.Render())
	if err != nil {
		return fmt.Errorf("write batch table: %w", err)
	}

	return nil
}

// WriteBatchPlot writes an HTML bar chart of lines added and removed per item.
func WriteBatchPlot(w io.Writer, report BatchReport) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "revdiff batch",
			Width:     chartWidth,
			Height:    chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Line changes per document",
			Subtitle: fmt.Sprintf("%d comparisons, %d failed", report.Summary.Total, report.Summary.Failed),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: xAxisRotate, Interval: "0"}}),
	)

	labels := make([]string, 0, len(report.Items))
	added := make([]opts.BarData, 0, len(report.Items))
	removed := make([]opts.BarData, 0, len(report.Items))

	for _, rec := range report.Items {
		if rec.Result == nil {
			continue
		}

		labels = append(labels, rec.label())
		added = append(added, opts.BarData{Value: rec.Result.LinesAdded})
		removed = append(removed, opts.BarData{Value: rec.Result.LinesRemoved})
	}

	bar.SetXAxis(labels)
	bar.AddSeries("Lines added", added, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorAdded}))
	bar.AddSeries("Lines removed", removed, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorRemove}))

	err := bar.Render(w)
	if err != nil {
		return fmt.Errorf("render batch chart: %w", err)
	}

	return nil
}
