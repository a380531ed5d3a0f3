package warehouse

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
)

// DateRange bounds an aggregate query. Zero values leave the corresponding
// side unbounded.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (r DateRange) bounds() (time.Time, time.Time) {
	from, to := r.From, r.To
	if from.IsZero() {
		from = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	if to.IsZero() {
		to = OpenEnd
	}
	return from, to
}

// DeployedCount is the number of deployed devices observed on one date.
type DeployedCount struct {
	Date     time.Time `db:"date" json:"date"`
	Deployed int64     `db:"deployed" json:"deployed"`
}

// ChangeCount is the number of retired devices observed on one date.
type ChangeCount struct {
	Date    time.Time `db:"date" json:"date"`
	Changes int64     `db:"changes" json:"changes"`
}

// TypeChangeCount breaks changes on one date down by device type.
type TypeChangeCount struct {
	Date       time.Time `db:"date" json:"date"`
	DeviceType string    `db:"device_type" json:"device_type"`
	Changes    int64     `db:"changes" json:"changes"`
}

// ConfidencePoint is the per-date inventory difference and confidence:
// difference is the changed fraction of the deployed count, confidence its
// complement.
type ConfidencePoint struct {
	Date       time.Time `db:"date" json:"date"`
	Difference float64   `db:"difference" json:"difference"`
	Confidence float64   `db:"confidence" json:"confidence"`
}

// Summary is the headline block shown on the dashboard.
type Summary struct {
	AvgDeployed  float64 `json:"avg_deployed"`
	AvgChanges   float64 `json:"avg_changes"`
	Confidence   float64 `json:"confidence"`
	Difference   float64 `json:"difference"`
	TotalDevices int64   `json:"total_devices"`
}

// DeployedByDate counts deployed devices per snapshot date.
func DeployedByDate(ctx context.Context, q pgxscan.Querier, r DateRange) ([]DeployedCount, error) {
	from, to := r.bounds()
	var out []DeployedCount
	err := pgxscan.Select(ctx, q, &out, `
SELECT date_key AS date, SUM(is_deployed) AS deployed
FROM fact_inventory
WHERE date_key BETWEEN $1 AND $2
GROUP BY date_key
ORDER BY date_key
`, from, to)
	if err != nil {
		return nil, fmt.Errorf("deployed by date: %w", err)
	}
	return out, nil
}

// ChangesByDate counts retired devices per snapshot date.
func ChangesByDate(ctx context.Context, q pgxscan.Querier, r DateRange) ([]ChangeCount, error) {
	from, to := r.bounds()
	var out []ChangeCount
	err := pgxscan.Select(ctx, q, &out, `
SELECT date_key AS date, SUM(has_changed) AS changes
FROM fact_inventory
WHERE date_key BETWEEN $1 AND $2
GROUP BY date_key
ORDER BY date_key
`, from, to)
	if err != nil {
		return nil, fmt.Errorf("changes by date: %w", err)
	}
	return out, nil
}

// ChangesByTypeByDate counts retired devices per device type per date.
func ChangesByTypeByDate(ctx context.Context, q pgxscan.Querier, r DateRange) ([]TypeChangeCount, error) {
	from, to := r.bounds()
	var out []TypeChangeCount
	err := pgxscan.Select(ctx, q, &out, `
SELECT fi.date_key AS date,
       COALESCE(de.device_type, 'unknown') AS device_type,
       SUM(fi.has_changed) AS changes
FROM fact_inventory fi
JOIN dim_equipment de ON fi.equipment_key = de.equipment_key
WHERE fi.has_changed = 1
  AND fi.date_key BETWEEN $1 AND $2
GROUP BY fi.date_key, de.device_type
ORDER BY date, changes DESC
`, from, to)
	if err != nil {
		return nil, fmt.Errorf("changes by type: %w", err)
	}
	return out, nil
}

// ConfidenceByDate computes the per-date inventory difference and confidence
// ratios over the fact table.
func ConfidenceByDate(ctx context.Context, q pgxscan.Querier, r DateRange) ([]ConfidencePoint, error) {
	from, to := r.bounds()
	var out []ConfidencePoint
	err := pgxscan.Select(ctx, q, &out, `
SELECT date_key AS date,
       SUM(has_changed)::float / NULLIF(SUM(is_deployed), 0)::float AS difference,
       1 - SUM(has_changed)::float / NULLIF(SUM(is_deployed), 0)::float AS confidence
FROM fact_inventory
WHERE date_key BETWEEN $1 AND $2
GROUP BY date_key
ORDER BY date_key
`, from, to)
	if err != nil {
		return nil, fmt.Errorf("confidence by date: %w", err)
	}
	return out, nil
}

// firstTrackedDevices is the inventory size predating the first tracked
// snapshot, carried over from the spreadsheet the dashboard replaced.
const firstTrackedDevices = 200

// BuildSummary derives the headline numbers from the per-date aggregates.
func BuildSummary(deployed []DeployedCount, changes []ChangeCount) Summary {
	var s Summary
	if len(deployed) == 0 {
		return s
	}

	var totalDeployed int64
	for _, d := range deployed {
		totalDeployed += d.Deployed
	}
	s.AvgDeployed = round2(float64(totalDeployed) / float64(len(deployed)))

	if len(changes) > 0 {
		var totalChanges int64
		for _, c := range changes {
			totalChanges += c.Changes
		}
		s.AvgChanges = round2(float64(totalChanges) / float64(len(changes)))
	}

	if s.AvgDeployed > 0 {
		s.Difference = round2(s.AvgChanges / s.AvgDeployed * 100)
		s.Confidence = round2(100 - s.Difference)
	}

	s.TotalDevices = deployed[len(deployed)-1].Deployed - deployed[0].Deployed + firstTrackedDevices
	return s
}

// SummaryFor runs the aggregates needed for the headline block.
func SummaryFor(ctx context.Context, q pgxscan.Querier, r DateRange) (Summary, error) {
	deployed, err := DeployedByDate(ctx, q, r)
	if err != nil {
		return Summary{}, err
	}
	changes, err := ChangesByDate(ctx, q, r)
	if err != nil {
		return Summary{}, err
	}
	return BuildSummary(deployed, changes), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
