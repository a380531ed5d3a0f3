package reports

import (
	"fmt"
	"sort"
	"strings"

	"invdash/services/warehouse"
)

// Chart geometry is computed here so the SVG templates only place elements.

const (
	chartWidth   = 900
	chartHeight  = 600
	marginLeft   = 50
	marginRight  = 20
	marginTop    = 50
	marginBottom = 110
)

// palette mirrors the d3 category scheme the dashboard always used.
var palette = []string{
	"#3182bd", "#6baed6", "#9ecae1", "#e6550d", "#fd8d3c", "#fdae6b",
	"#31a354", "#74c476", "#a1d99b", "#756bb1", "#9e9ac8", "#bcbddc",
	"#636363", "#969696", "#bdbdbd", "#843c39", "#ad494a", "#d6616b",
	"#7b4173", "#a55194",
}

type bar struct {
	Label  string
	Value  int64
	Color  string
	X, Y   int
	W, H   int
	LabelX int
	LabelY int
	ValueY int
}

type barChart struct {
	Title     string
	Width     int
	Height    int
	TitleX    int
	AxisX     int
	AxisY     int
	AxisRight int
	Bars      []bar
}

type datePoint struct {
	Label string
	Value int64
}

func buildBarChart(title, color string, points []datePoint) barChart {
	c := barChart{
		Title:     title,
		Width:     chartWidth,
		Height:    chartHeight,
		TitleX:    chartWidth / 2,
		AxisX:     marginLeft,
		AxisY:     chartHeight - marginBottom,
		AxisRight: chartWidth - marginRight,
	}
	if len(points) == 0 {
		return c
	}

	var max int64 = 1
	for _, p := range points {
		if p.Value > max {
			max = p.Value
		}
	}

	plotW := chartWidth - marginLeft - marginRight
	plotH := chartHeight - marginTop - marginBottom
	slot := plotW / len(points)
	barW := slot * 6 / 10
	if barW < 1 {
		barW = 1
	}

	for i, p := range points {
		h := int(int64(plotH) * p.Value / max)
		x := marginLeft + i*slot + (slot-barW)/2
		y := chartHeight - marginBottom - h
		c.Bars = append(c.Bars, bar{
			Label:  p.Label,
			Value:  p.Value,
			Color:  color,
			X:      x,
			Y:      y,
			W:      barW,
			H:      h,
			LabelX: x + barW/2,
			LabelY: chartHeight - marginBottom + 14,
			ValueY: y - 4,
		})
	}
	return c
}

type stackedSegment struct {
	Series string
	Value  int64
	Color  string
	X, Y   int
	W, H   int
}

type stackedRow struct {
	Label    string
	LabelX   int
	LabelY   int
	Segments []stackedSegment
}

type legendEntry struct {
	Series  string
	Color   string
	SwatchX int
	SwatchY int
	TextX   int
	TextY   int
}

type stackedChart struct {
	Title  string
	Width  int
	Height int
	TitleX int
	Rows   []stackedRow
	Legend []legendEntry
}

// buildStackedChart lays out one horizontal bar per date, newest first,
// segmented by device type.
func buildStackedChart(title string, counts []warehouse.TypeChangeCount) stackedChart {
	c := stackedChart{
		Title:  title,
		Width:  chartWidth,
		Height: chartHeight,
		TitleX: chartWidth / 2,
	}
	if len(counts) == 0 {
		return c
	}

	byDate := make(map[string]map[string]int64)
	var dates []string
	series := make(map[string]struct{})
	for _, tc := range counts {
		key := warehouse.DateKeyFormat(tc.Date)
		if _, ok := byDate[key]; !ok {
			byDate[key] = make(map[string]int64)
			dates = append(dates, key)
		}
		byDate[key][tc.DeviceType] += tc.Changes
		series[tc.DeviceType] = struct{}{}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	names := make([]string, 0, len(series))
	for s := range series {
		names = append(names, s)
	}
	sort.Strings(names)

	colors := make(map[string]string, len(names))
	for i, s := range names {
		colors[s] = palette[i%len(palette)]
	}

	var maxTotal int64 = 1
	for _, row := range byDate {
		var total int64
		for _, v := range row {
			total += v
		}
		if total > maxTotal {
			maxTotal = total
		}
	}

	labelW := 90
	plotW := chartWidth - labelW - marginRight
	plotH := chartHeight - marginTop - 60
	slot := plotH / len(dates)
	rowH := slot * 8 / 10
	if rowH < 1 {
		rowH = 1
	}

	for i, d := range dates {
		y := marginTop + i*slot
		row := stackedRow{Label: d, LabelX: labelW - 8, LabelY: y + rowH/2 + 4}
		x := labelW
		for _, s := range names {
			v := byDate[d][s]
			if v == 0 {
				continue
			}
			w := int(int64(plotW) * v / maxTotal)
			row.Segments = append(row.Segments, stackedSegment{
				Series: s, Value: v, Color: colors[s],
				X: x, Y: y, W: w, H: rowH,
			})
			x += w
		}
		c.Rows = append(c.Rows, row)
	}

	legendY := chartHeight - 40
	x := labelW
	for _, s := range names {
		c.Legend = append(c.Legend, legendEntry{
			Series: s, Color: colors[s],
			SwatchX: x, SwatchY: legendY,
			TextX: x + 14, TextY: legendY + 9,
		})
		x += 14 + 7*len(s) + 16
	}

	return c
}

type lineMarker struct {
	Label string
	Text  string
	X, Y  int
	TextY int
}

type lineChart struct {
	Title   string
	Width   int
	Height  int
	TitleX  int
	Color   string
	Points  string
	Markers []lineMarker
}

// buildLineChart plots a percentage series in date order with one labelled
// marker per snapshot.
func buildLineChart(title, color string, labels []string, values []float64) lineChart {
	c := lineChart{
		Title:  title,
		Width:  chartWidth,
		Height: chartHeight,
		TitleX: chartWidth / 2,
		Color:  color,
	}
	if len(labels) == 0 || len(labels) != len(values) {
		return c
	}

	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	span := max - min
	if span == 0 {
		span = 1
	}

	plotW := chartWidth - marginLeft - marginRight
	plotH := chartHeight - marginTop - marginBottom
	step := 0
	if len(labels) > 1 {
		step = plotW / (len(labels) - 1)
	}

	var points []string
	for i, v := range values {
		x := marginLeft + i*step
		y := marginTop + plotH - int(float64(plotH)*(v-min)/span)
		points = append(points, fmt.Sprintf("%d,%d", x, y))
		c.Markers = append(c.Markers, lineMarker{
			Label: labels[i],
			Text:  fmt.Sprintf("%.2f%%", v*100),
			X:     x,
			Y:     y,
			TextY: y - 10,
		})
	}
	c.Points = strings.Join(points, " ")
	return c
}
