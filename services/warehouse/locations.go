package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

// locationStats summarises one location dimension merge.
type locationStats struct {
	Inserted int
	Expired  int
	Carried  int
}

// activeLocations reads the open-ended dim_location rows keyed by natural key.
func activeLocations(ctx context.Context, q pgxscan.Querier) (map[LocationKey]LocationRow, error) {
	var rows []LocationRow
	err := pgxscan.Select(ctx, q, &rows, `
SELECT location_key, location_name, building, effective_dt, expiration_dt
FROM dim_location
WHERE expiration_dt = $1
`, OpenEnd)
	if err != nil {
		return nil, fmt.Errorf("read active locations: %w", err)
	}

	active := make(map[LocationKey]LocationRow, len(rows))
	for _, r := range rows {
		active[r.NaturalKey()] = r
	}
	return active, nil
}

// updateLocations merges the snapshot's distinct (location, building) pairs
// into dim_location and returns the refreshed active set for downstream
// steps. Natural keys absent from the snapshot are expired on the snapshot
// date; unseen keys get fresh rows with storage-assigned surrogate keys.
func updateLocations(ctx context.Context, tx pgx.Tx, date time.Time, rows []SnapshotRow) (map[LocationKey]LocationRow, locationStats, error) {
	active, err := activeLocations(ctx, tx)
	if err != nil {
		return nil, locationStats{}, err
	}

	pairs := make([]LocationKey, 0, len(rows))
	for _, r := range rows {
		pairs = append(pairs, LocationKey{Name: r.LocationName, Building: r.Building})
	}

	merge := Reconcile(pairs, func(k LocationKey) LocationKey { return k }, active)

	if len(merge.Expire) > 0 {
		keys := make([]int64, 0, len(merge.Expire))
		for _, row := range merge.Expire {
			keys = append(keys, row.LocationKey)
			delete(active, row.NaturalKey())
		}
		if _, err := tx.Exec(ctx, `
UPDATE dim_location
SET expiration_dt = $1
WHERE location_key = ANY($2)
`, date, keys); err != nil {
			return nil, locationStats{}, fmt.Errorf("expire locations: %w", err)
		}
	}

	for _, key := range merge.Insert {
		row := LocationRow{
			LocationName: key.Name,
			Building:     key.Building,
			EffectiveDt:  date,
			ExpirationDt: OpenEnd,
		}
		if err := tx.QueryRow(ctx, `
INSERT INTO dim_location (location_name, building, effective_dt, expiration_dt)
VALUES ($1, $2, $3, $4)
RETURNING location_key
`, row.LocationName, row.Building, row.EffectiveDt, row.ExpirationDt).Scan(&row.LocationKey); err != nil {
			return nil, locationStats{}, fmt.Errorf("insert location %s/%s: %w", key.Name, key.Building, err)
		}
		active[key] = row
	}

	stats := locationStats{
		Inserted: len(merge.Insert),
		Expired:  len(merge.Expire),
		Carried:  merge.Carried,
	}
	return active, stats, nil
}
