package reports

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"invdash/pkg/render"
	"invdash/services/warehouse"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Fatalf("got %+v, want defaults", cfg)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.yaml")
	body := "output_dir: /tmp/out\nweeks: 8\ncsv_exports: false\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	want := Config{OutputDir: "/tmp/out", Weeks: 8, CSVExports: false}
	if !reflect.DeepEqual(cfg, want) {
		t.Fatalf("got %+v, want %+v", cfg, want)
	}
}

func TestLoadConfigRejectsNegativeWeeks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.yaml")
	if err := os.WriteFile(path, []byte("weeks: -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for negative weeks")
	}
}

func TestLastN(t *testing.T) {
	rows := []int{1, 2, 3, 4, 5}

	if got := lastN(rows, 3); !reflect.DeepEqual(got, []int{3, 4, 5}) {
		t.Fatalf("lastN(3) = %v", got)
	}
	if got := lastN(rows, 10); !reflect.DeepEqual(got, rows) {
		t.Fatalf("lastN(10) = %v", got)
	}
	if got := lastN(rows, 0); !reflect.DeepEqual(got, rows) {
		t.Fatalf("lastN(0) = %v", got)
	}
}

func TestBuildBarChart(t *testing.T) {
	points := []datePoint{
		{Label: "2024-01-01", Value: 50},
		{Label: "2024-01-08", Value: 100},
	}

	c := buildBarChart("Deployed", "#6baed6", points)
	if len(c.Bars) != 2 {
		t.Fatalf("got %d bars, want 2", len(c.Bars))
	}

	plotH := chartHeight - marginTop - marginBottom
	if c.Bars[1].H != plotH {
		t.Errorf("max bar height = %d, want %d", c.Bars[1].H, plotH)
	}
	if c.Bars[0].H != plotH/2 {
		t.Errorf("half bar height = %d, want %d", c.Bars[0].H, plotH/2)
	}
	if c.Bars[0].Y+c.Bars[0].H != chartHeight-marginBottom {
		t.Errorf("bar does not sit on the axis: y=%d h=%d", c.Bars[0].Y, c.Bars[0].H)
	}
}

func TestBuildBarChartEmpty(t *testing.T) {
	c := buildBarChart("Deployed", "#6baed6", nil)
	if len(c.Bars) != 0 {
		t.Fatalf("got %d bars, want none", len(c.Bars))
	}
	if c.Width != chartWidth || c.Height != chartHeight {
		t.Fatalf("empty chart lost its frame: %dx%d", c.Width, c.Height)
	}
}

func TestBuildStackedChart(t *testing.T) {
	counts := []warehouse.TypeChangeCount{
		{Date: day("2024-01-01"), DeviceType: "switch", Changes: 3},
		{Date: day("2024-01-01"), DeviceType: "router", Changes: 1},
		{Date: day("2024-01-08"), DeviceType: "switch", Changes: 2},
	}

	c := buildStackedChart("Changes", counts)
	if len(c.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(c.Rows))
	}
	if c.Rows[0].Label != "2024-01-08" {
		t.Errorf("rows not newest first: %q", c.Rows[0].Label)
	}
	if len(c.Rows[1].Segments) != 2 {
		t.Errorf("got %d segments for 2024-01-01, want 2", len(c.Rows[1].Segments))
	}
	if len(c.Legend) != 2 {
		t.Fatalf("got %d legend entries, want 2", len(c.Legend))
	}
	if c.Legend[0].Series != "router" || c.Legend[1].Series != "switch" {
		t.Errorf("legend not sorted: %q, %q", c.Legend[0].Series, c.Legend[1].Series)
	}

	// The same type must keep its color across rows.
	colors := make(map[string]string)
	for _, row := range c.Rows {
		for _, seg := range row.Segments {
			if prev, ok := colors[seg.Series]; ok && prev != seg.Color {
				t.Errorf("series %s changed color: %s vs %s", seg.Series, prev, seg.Color)
			}
			colors[seg.Series] = seg.Color
		}
	}
}

func TestStackedChartEscapesDeviceTypes(t *testing.T) {
	engine, err := render.New()
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}

	counts := []warehouse.TypeChangeCount{
		{Date: day("2024-01-01"), DeviceType: `switch <48p> & "spare"`, Changes: 2},
	}

	out, err := engine.Render("stacked.svg", buildStackedChart("Changes", counts))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(out, "<48p>") {
		t.Fatal("device type rendered unescaped")
	}
	if !strings.Contains(out, "switch &lt;48p&gt; &amp; &quot;spare&quot;") {
		t.Fatalf("escaped device type missing from output:\n%s", out)
	}
}

func TestBuildLineChart(t *testing.T) {
	labels := []string{"2024-01-01", "2024-01-08", "2024-01-15"}
	values := []float64{0.90, 0.95, 1.00}

	c := buildLineChart("Confidence", "#31a354", labels, values)
	if len(c.Markers) != 3 {
		t.Fatalf("got %d markers, want 3", len(c.Markers))
	}
	if c.Markers[0].Text != "90.00%" {
		t.Errorf("marker text = %q, want 90.00%%", c.Markers[0].Text)
	}
	if c.Markers[0].Y <= c.Markers[2].Y {
		t.Errorf("lowest value should plot lowest: first y=%d last y=%d", c.Markers[0].Y, c.Markers[2].Y)
	}
	if got := len(strings.Fields(c.Points)); got != 3 {
		t.Errorf("polyline has %d points, want 3", got)
	}
}

func TestBuildLineChartMismatchedInput(t *testing.T) {
	c := buildLineChart("Confidence", "#31a354", []string{"2024-01-01"}, nil)
	if len(c.Markers) != 0 || c.Points != "" {
		t.Fatal("mismatched labels and values should produce an empty chart")
	}
}

func TestExportCSVs(t *testing.T) {
	dir := t.TempDir()
	g := &Generator{cfg: Config{OutputDir: dir, CSVExports: true}}

	deployed := []warehouse.DeployedCount{{Date: day("2024-01-01"), Deployed: 42}}
	changes := []warehouse.ChangeCount{{Date: day("2024-01-01"), Changes: 3}}
	byType := []warehouse.TypeChangeCount{{Date: day("2024-01-01"), DeviceType: "switch", Changes: 3}}
	confidence := []warehouse.ConfidencePoint{{Date: day("2024-01-01"), Difference: 0.05, Confidence: 0.95}}

	if err := g.exportCSVs(deployed, changes, byType, confidence); err != nil {
		t.Fatalf("exportCSVs: %v", err)
	}

	tests := []struct {
		file string
		want []string
	}{
		{"deployed_by_date.csv", []string{"date,deployed", "2024-01-01,42"}},
		{"change_by_date.csv", []string{"date,changes", "2024-01-01,3"}},
		{"change_by_type_by_date.csv", []string{"date,device_type,changes", "2024-01-01,switch,3"}},
		{"confidence_difference.csv", []string{"date,difference,confidence", "2024-01-01,0.050000,0.950000"}},
	}
	for _, tc := range tests {
		data, err := os.ReadFile(filepath.Join(dir, tc.file))
		if err != nil {
			t.Fatalf("read %s: %v", tc.file, err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if !reflect.DeepEqual(lines, tc.want) {
			t.Errorf("%s = %v, want %v", tc.file, lines, tc.want)
		}
	}
}
