package reports

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"invdash/services/warehouse"
)

// exportCSVs writes the aggregate tables as CSV files next to the charts,
// for download from the dashboard.
func (g *Generator) exportCSVs(
	deployed []warehouse.DeployedCount,
	changes []warehouse.ChangeCount,
	byType []warehouse.TypeChangeCount,
	confidence []warehouse.ConfidencePoint,
) error {
	files := []struct {
		name   string
		header []string
		rows   [][]string
	}{
		{"deployed_by_date.csv", []string{"date", "deployed"}, deployedRecords(deployed)},
		{"change_by_date.csv", []string{"date", "changes"}, changeRecords(changes)},
		{"change_by_type_by_date.csv", []string{"date", "device_type", "changes"}, typeChangeRecords(byType)},
		{"confidence_difference.csv", []string{"date", "difference", "confidence"}, confidenceRecords(confidence)},
	}

	for _, f := range files {
		if err := writeCSV(filepath.Join(g.cfg.OutputDir, f.name), f.header, f.rows); err != nil {
			return err
		}
	}
	return nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func deployedRecords(rows []warehouse.DeployedCount) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{warehouse.DateKeyFormat(r.Date), strconv.FormatInt(r.Deployed, 10)})
	}
	return out
}

func changeRecords(rows []warehouse.ChangeCount) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{warehouse.DateKeyFormat(r.Date), strconv.FormatInt(r.Changes, 10)})
	}
	return out
}

func typeChangeRecords(rows []warehouse.TypeChangeCount) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{warehouse.DateKeyFormat(r.Date), r.DeviceType, strconv.FormatInt(r.Changes, 10)})
	}
	return out
}

func confidenceRecords(rows []warehouse.ConfidencePoint) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			warehouse.DateKeyFormat(r.Date),
			strconv.FormatFloat(r.Difference, 'f', 6, 64),
			strconv.FormatFloat(r.Confidence, 'f', 6, 64),
		})
	}
	return out
}
