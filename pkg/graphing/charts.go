package graphing

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// createLineChart plots one metric against request time.
func createLineChart(s *Series) *charts.Line {
	line := charts.NewLine()

	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: formatName(s.Name), Subtitle: s.Category}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", AxisLabel: &opts.AxisLabel{Rotate: 45}}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "400px"}),
	)

	xLabels := make([]string, len(s.Times))
	for i, ts := range s.Times {
		xLabels[i] = ts.Format("01-02 15:04:05")
	}
	data := make([]opts.LineData, len(s.Values))
	for i, v := range s.Values {
		data[i] = opts.LineData{Value: v}
	}

	line.SetXAxis(xLabels).AddSeries(s.Name, data,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), ShowSymbol: opts.Bool(true)}),
	)
	return line
}

// RenderHTML writes every series with at least two points as one echarts
// page. static, when present, is shown above the charts.
func RenderHTML(w io.Writer, title string, series []*Series, static *StaticInfoData) (int, error) {
	page := components.NewPage()
	page.PageTitle = title

	added := 0
	for _, s := range series {
		if len(s.Values) < 2 {
			continue
		}
		page.AddCharts(createLineChart(s))
		added++
	}
	if added == 0 {
		return 0, ErrNotEnoughData
	}

	var buf strings.Builder
	if err := page.Render(&buf); err != nil {
		return 0, fmt.Errorf("failed to render charts: %w", err)
	}

	content := buf.String()
	if static != nil {
		header, err := renderStaticInfoHTML(static)
		if err != nil {
			return 0, err
		}
		content = strings.Replace(content, "<body>", "<body>\n"+header, 1)
		content = strings.Replace(content, "</head>", pageHead+"</head>", 1)
	}

	if _, err := io.WriteString(w, content); err != nil {
		return 0, fmt.Errorf("failed to write page: %w", err)
	}
	return added, nil
}
