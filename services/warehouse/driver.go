package warehouse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"invdash/pkg/bus"
	"invdash/pkg/db"
)

// ErrOutOfOrder marks a snapshot whose date is not strictly after the last
// loaded date. Reconciliation reads the active set produced by the previous
// snapshot, so replaying or reordering dates would corrupt the dimensions.
var ErrOutOfOrder = errors.New("snapshot date out of order")

var snapshotNamePattern = regexp.MustCompile(`asset-report-(\d{4}-\d{2}-\d{2})`)

// SnapshotDate extracts the snapshot date embedded in an export file name.
func SnapshotDate(name string) (time.Time, error) {
	m := snapshotNamePattern.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, fmt.Errorf("no asset-report date in file name %q", name)
	}
	date, err := time.ParseInLocation("2006-01-02", m[1], time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse snapshot date %q: %w", m[1], err)
	}
	return date, nil
}

// SnapshotFile is a discovered export waiting to be loaded.
type SnapshotFile struct {
	Path string
	Date time.Time
}

// DiscoverSnapshots scans dir for asset-report exports and returns them in
// ascending date order. Two files carrying the same date are ambiguous and
// rejected before any load starts.
func DiscoverSnapshots(dir string) ([]SnapshotFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	byDate := make(map[string]string)
	var files []SnapshotFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		date, err := SnapshotDate(e.Name())
		if err != nil {
			continue
		}
		key := DateKeyFormat(date)
		if prev, dup := byDate[key]; dup {
			return nil, fmt.Errorf("duplicate snapshot date %s: %s and %s", key, prev, e.Name())
		}
		byDate[key] = e.Name()
		files = append(files, SnapshotFile{Path: filepath.Join(dir, e.Name()), Date: date})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Date.Before(files[j].Date) })
	return files, nil
}

// Loader drives snapshot ingestion: staging, dimension reconciliation, fact
// loading, and the audit trail, one transaction per snapshot date.
type Loader struct {
	pool *pgxpool.Pool
	bus  *bus.Bus
	log  zerolog.Logger
}

// NewLoader constructs a Loader. The bus is optional; without one, loaded
// events are simply not published.
func NewLoader(pool *pgxpool.Pool, eventBus *bus.Bus, log zerolog.Logger) (*Loader, error) {
	if pool == nil {
		return nil, errors.New("database pool is required")
	}
	return &Loader{pool: pool, bus: eventBus, log: log}, nil
}

// LoadResult reports what one committed snapshot changed.
type LoadResult struct {
	RunID             uuid.UUID `json:"run_id"`
	DateKey           string    `json:"date_key"`
	Staged            int64     `json:"staged"`
	LocationsInserted int       `json:"locations_inserted"`
	LocationsExpired  int       `json:"locations_expired"`
	EquipmentInserted int       `json:"equipment_inserted"`
	EquipmentRetired  int       `json:"equipment_retired"`
	FactsDeployed     int       `json:"facts_deployed"`
	FactsChanged      int       `json:"facts_changed"`
	LocationMisses    int       `json:"location_misses"`
}

// LoadDir discovers and loads every snapshot under dir in ascending date
// order, stopping at the first failure so later dates are never loaded on
// top of a broken sequence.
func (l *Loader) LoadDir(ctx context.Context, dir string) ([]LoadResult, error) {
	files, err := DiscoverSnapshots(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no asset-report files in %s", dir)
	}

	results := make([]LoadResult, 0, len(files))
	for _, f := range files {
		res, err := l.LoadFile(ctx, f.Path)
		if err != nil {
			return results, fmt.Errorf("load %s: %w", f.Path, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// LoadFile parses and loads a single snapshot export.
func (l *Loader) LoadFile(ctx context.Context, path string) (LoadResult, error) {
	snap, err := ParseSnapshotFile(path)
	if err != nil {
		return LoadResult{}, err
	}
	return l.LoadSnapshot(ctx, snap)
}

// LoadSnapshot runs the full merge pipeline for one snapshot: ordering guard,
// then stage, date, locations, equipment, and facts inside one transaction.
// Any failure rolls the whole snapshot back.
func (l *Loader) LoadSnapshot(ctx context.Context, snap Snapshot) (LoadResult, error) {
	if err := l.checkOrder(ctx, snap.Date); err != nil {
		return LoadResult{}, err
	}

	res := LoadResult{
		RunID:   uuid.New(),
		DateKey: DateKeyFormat(snap.Date),
	}

	err := db.Tx(ctx, l.pool, func(ctx context.Context, tx pgx.Tx) error {
		staged, err := stageSnapshot(ctx, tx, snap)
		if err != nil {
			return err
		}
		res.Staged = staged

		if err := insertDate(ctx, tx, snap.Date); err != nil {
			return err
		}

		locations, locStats, err := updateLocations(ctx, tx, snap.Date, snap.Rows)
		if err != nil {
			return err
		}
		res.LocationsInserted = locStats.Inserted
		res.LocationsExpired = locStats.Expired

		eq, err := updateEquipment(ctx, tx, snap.Date, snap.Rows, locations)
		if err != nil {
			return err
		}
		res.EquipmentInserted = eq.Stats.Inserted
		res.EquipmentRetired = eq.Stats.Retired
		res.LocationMisses = eq.Stats.LocationMisses

		facts, err := loadFacts(ctx, tx, snap.Date, snap.Rows, locations, eq)
		if err != nil {
			return err
		}
		res.FactsDeployed = facts.Deployed
		res.FactsChanged = facts.Changed

		return insertAudit(ctx, tx, res)
	})
	if err != nil {
		return LoadResult{}, err
	}

	l.observe(res)

	if l.bus != nil {
		// The snapshot is already committed; a publish failure only delays
		// report regeneration, so it is logged rather than surfaced.
		if err := l.bus.Publish(ctx, bus.SnapshotsLoadedSubject, res); err != nil {
			l.log.Warn().Err(err).Str("date_key", res.DateKey).Msg("publish loaded event")
		}
	}

	return res, nil
}

// checkOrder rejects snapshot dates at or before the newest loaded date_key.
func (l *Loader) checkOrder(ctx context.Context, date time.Time) error {
	var max *time.Time
	err := db.Get(ctx, l.pool, &max, `SELECT max(date_key) FROM dim_date_calendar`)
	if err != nil {
		return fmt.Errorf("read max loaded date: %w", err)
	}
	return guardOrder(date, max)
}

// guardOrder enforces strictly increasing snapshot dates. last is nil when
// nothing has been loaded yet.
func guardOrder(date time.Time, last *time.Time) error {
	if last != nil && !date.After(*last) {
		return fmt.Errorf("%w: %s is not after last loaded date %s",
			ErrOutOfOrder, DateKeyFormat(date), DateKeyFormat(*last))
	}
	return nil
}

func insertAudit(ctx context.Context, tx pgx.Tx, res LoadResult) error {
	details := map[string]any{
		"staged":             res.Staged,
		"locations_inserted": res.LocationsInserted,
		"locations_expired":  res.LocationsExpired,
		"equipment_inserted": res.EquipmentInserted,
		"equipment_retired":  res.EquipmentRetired,
		"facts_deployed":     res.FactsDeployed,
		"facts_changed":      res.FactsChanged,
		"location_misses":    res.LocationMisses,
	}

	detailsBytes, err := json.Marshal(details)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
INSERT INTO load_audit (run_id, date_key, details)
VALUES ($1, $2, $3::jsonb)
`, res.RunID, res.DateKey, detailsBytes)
	if err != nil {
		return fmt.Errorf("insert audit row: %w", err)
	}
	return nil
}

func (l *Loader) observe(res LoadResult) {
	metricSnapshotsLoaded.Inc()
	metricRowsStaged.Add(float64(res.Staged))
	metricDimInserts.WithLabelValues("location").Add(float64(res.LocationsInserted))
	metricDimExpirations.WithLabelValues("location").Add(float64(res.LocationsExpired))
	metricDimInserts.WithLabelValues("equipment").Add(float64(res.EquipmentInserted))
	metricDimExpirations.WithLabelValues("equipment").Add(float64(res.EquipmentRetired))
	metricFactRows.WithLabelValues("deployed").Add(float64(res.FactsDeployed))
	metricFactRows.WithLabelValues("changed").Add(float64(res.FactsChanged))
	metricLocationMisses.Add(float64(res.LocationMisses))

	event := l.log.Info().
		Str("date_key", res.DateKey).
		Int64("staged", res.Staged).
		Int("locations_inserted", res.LocationsInserted).
		Int("locations_expired", res.LocationsExpired).
		Int("equipment_inserted", res.EquipmentInserted).
		Int("equipment_retired", res.EquipmentRetired).
		Int("facts_deployed", res.FactsDeployed).
		Int("facts_changed", res.FactsChanged)
	if res.LocationMisses > 0 {
		event = event.Int("location_misses", res.LocationMisses)
	}
	event.Msg("snapshot loaded")
}
