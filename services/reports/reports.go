package reports

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"invdash/pkg/render"
	"invdash/services/warehouse"
)

// Generator renders the dashboard outputs from the warehouse aggregates.
type Generator struct {
	pool     *pgxpool.Pool
	renderer *render.Engine
	cfg      Config
	log      zerolog.Logger
}

// NewGenerator constructs a Generator for the provided dependencies.
func NewGenerator(pool *pgxpool.Pool, renderer *render.Engine, cfg Config, log zerolog.Logger) (*Generator, error) {
	if pool == nil {
		return nil, errors.New("database pool is required")
	}
	if renderer == nil {
		return nil, errors.New("renderer is required")
	}
	return &Generator{pool: pool, renderer: renderer, cfg: cfg, log: log}, nil
}

type indexView struct {
	From    string
	To      string
	Summary warehouse.Summary
	Charts  []string
}

// Generate queries the aggregates and writes every configured output to the
// report directory. It is safe to call repeatedly; each run overwrites the
// previous outputs.
func (g *Generator) Generate(ctx context.Context) error {
	if err := os.MkdirAll(g.cfg.OutputDir, 0o755); err != nil {
		return err
	}

	window := warehouse.DateRange{}

	deployed, err := warehouse.DeployedByDate(ctx, g.pool, window)
	if err != nil {
		return err
	}
	changes, err := warehouse.ChangesByDate(ctx, g.pool, window)
	if err != nil {
		return err
	}
	byType, err := warehouse.ChangesByTypeByDate(ctx, g.pool, window)
	if err != nil {
		return err
	}
	confidence, err := warehouse.ConfidenceByDate(ctx, g.pool, window)
	if err != nil {
		return err
	}

	deployed = lastN(deployed, g.cfg.Weeks)
	changes = lastN(changes, g.cfg.Weeks)
	confidence = lastN(confidence, g.cfg.Weeks)

	summary := warehouse.BuildSummary(deployed, changes)

	charts := []struct {
		file     string
		template string
		data     any
	}{
		{"deployed_by_date.svg", "bar.svg", buildBarChart("Devices Deployed by Date", "#6baed6", deployedPoints(deployed))},
		{"change_by_date.svg", "bar.svg", buildBarChart("Inventory Changes by Date", "#fd8d3c", changePoints(changes))},
		{"change_by_type.svg", "stacked.svg", buildStackedChart("Changes by Device Type", byType)},
		{"confidence.svg", "line.svg", confidenceChart(confidence)},
		{"difference.svg", "line.svg", differenceChart(confidence)},
	}

	view := indexView{Summary: summary}
	if len(deployed) > 0 {
		view.From = warehouse.DateKeyFormat(deployed[0].Date)
		view.To = warehouse.DateKeyFormat(deployed[len(deployed)-1].Date)
	}

	for _, chart := range charts {
		if err := g.renderTo(chart.file, chart.template, chart.data); err != nil {
			return err
		}
		view.Charts = append(view.Charts, chart.file)
	}

	if err := g.renderTo("summary.js", "summary.js", summary); err != nil {
		return err
	}
	if err := g.renderTo("index.html", "index.html", view); err != nil {
		return err
	}

	if g.cfg.CSVExports {
		if err := g.exportCSVs(deployed, changes, byType, confidence); err != nil {
			return err
		}
	}

	g.log.Info().Str("dir", g.cfg.OutputDir).Int("snapshots", len(deployed)).Msg("reports generated")
	return nil
}

func (g *Generator) renderTo(file, template string, data any) error {
	out, err := g.renderer.Render(template, data)
	if err != nil {
		return fmt.Errorf("render %s: %w", template, err)
	}
	path := filepath.Join(g.cfg.OutputDir, file)
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func lastN[T any](rows []T, n int) []T {
	if n <= 0 || len(rows) <= n {
		return rows
	}
	return rows[len(rows)-n:]
}

func deployedPoints(rows []warehouse.DeployedCount) []datePoint {
	points := make([]datePoint, 0, len(rows))
	for _, r := range rows {
		points = append(points, datePoint{Label: warehouse.DateKeyFormat(r.Date), Value: r.Deployed})
	}
	return points
}

func changePoints(rows []warehouse.ChangeCount) []datePoint {
	points := make([]datePoint, 0, len(rows))
	for _, r := range rows {
		points = append(points, datePoint{Label: warehouse.DateKeyFormat(r.Date), Value: r.Changes})
	}
	return points
}

func confidenceChart(rows []warehouse.ConfidencePoint) lineChart {
	labels := make([]string, 0, len(rows))
	values := make([]float64, 0, len(rows))
	for _, r := range rows {
		labels = append(labels, warehouse.DateKeyFormat(r.Date))
		values = append(values, r.Confidence)
	}
	return buildLineChart("Inventory Confidence", "#31a354", labels, values)
}

func differenceChart(rows []warehouse.ConfidencePoint) lineChart {
	labels := make([]string, 0, len(rows))
	values := make([]float64, 0, len(rows))
	for _, r := range rows {
		labels = append(labels, warehouse.DateKeyFormat(r.Date))
		values = append(values, r.Difference)
	}
	return buildLineChart("Inventory Difference", "#756bb1", labels, values)
}
