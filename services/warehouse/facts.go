package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// factStats summarises one fact load.
type factStats struct {
	Deployed int
	Changed  int
	Dropped  int
}

// buildDeployedFacts joins the snapshot rows against the just-updated active
// sets of both dimensions and emits one is_deployed row per matched device.
// Rows failing either join are dropped and counted. The location key comes
// from the snapshot row's current location, not the dimension row, so a
// device that moved still reports where it sits today.
func buildDeployedFacts(date time.Time, rows []SnapshotRow, locations map[LocationKey]LocationRow, equipment map[string]EquipmentRow) ([]FactRow, int) {
	facts := make([]FactRow, 0, len(rows))
	emitted := make(map[int64]struct{}, len(rows))
	dropped := 0

	for _, r := range rows {
		loc, ok := locations[LocationKey{Name: r.LocationName, Building: r.Building}]
		if !ok {
			dropped++
			continue
		}
		eq, ok := equipment[r.ResolveID()]
		if !ok {
			dropped++
			continue
		}
		if _, dup := emitted[eq.EquipmentKey]; dup {
			continue
		}
		emitted[eq.EquipmentKey] = struct{}{}

		facts = append(facts, FactRow{
			EquipmentKey: eq.EquipmentKey,
			LocationKey:  loc.LocationKey,
			DateKey:      date,
			IsDeployed:   1,
			HasChanged:   0,
		})
	}

	return facts, dropped
}

// buildChangeFacts emits one has_changed row per device retired on this
// snapshot's date, placed at its last known location.
func buildChangeFacts(date time.Time, retired []EquipmentRow) []FactRow {
	facts := make([]FactRow, 0, len(retired))
	for _, eq := range retired {
		facts = append(facts, FactRow{
			EquipmentKey: eq.EquipmentKey,
			LocationKey:  eq.LocationKey,
			DateKey:      date,
			IsDeployed:   0,
			HasChanged:   1,
		})
	}
	return facts
}

// loadFacts appends the snapshot's deployment and change rows to
// fact_inventory in one bulk copy.
func loadFacts(ctx context.Context, tx pgx.Tx, date time.Time, rows []SnapshotRow, locations map[LocationKey]LocationRow, eq equipmentResult) (factStats, error) {
	deployed, dropped := buildDeployedFacts(date, rows, locations, eq.Active)
	changed := buildChangeFacts(date, eq.Retired)

	facts := append(deployed, changed...)
	if len(facts) > 0 {
		_, err := tx.CopyFrom(ctx, pgx.Identifier{"fact_inventory"},
			[]string{"equipment_key", "location_key", "date_key", "is_deployed", "has_changed"},
			pgx.CopyFromSlice(len(facts), func(i int) ([]any, error) {
				f := facts[i]
				return []any{f.EquipmentKey, f.LocationKey, f.DateKey, f.IsDeployed, f.HasChanged}, nil
			}))
		if err != nil {
			return factStats{}, fmt.Errorf("copy fact rows: %w", err)
		}
	}

	return factStats{Deployed: len(deployed), Changed: len(changed), Dropped: dropped}, nil
}
