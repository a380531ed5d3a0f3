package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

// equipmentStats summarises one equipment dimension merge.
type equipmentStats struct {
	Inserted       int
	Retired        int
	Carried        int
	LocationMisses int
}

// equipmentResult carries the merge outputs the fact loader consumes in the
// same snapshot cycle: the refreshed active set and the rows retired on this
// snapshot's date.
type equipmentResult struct {
	Active  map[string]EquipmentRow
	Retired []EquipmentRow
	Stats   equipmentStats
}

// activeEquipment reads the open-ended dim_equipment rows keyed by equipment_id.
func activeEquipment(ctx context.Context, q pgxscan.Querier) (map[string]EquipmentRow, error) {
	var rows []EquipmentRow
	err := pgxscan.Select(ctx, q, &rows, `
SELECT equipment_key, equipment_id, location_key, asset_tag, barcode,
       device_name, device_type, ip_address, make, model, serial_number,
       simple_model, port_count, primary_purpose, category, purpose_id,
       rack_room_number, replacement_cost, effective_date, retirement_date,
       last_update_date
FROM dim_equipment
WHERE retirement_date = $1
`, OpenEnd)
	if err != nil {
		return nil, fmt.Errorf("read active equipment: %w", err)
	}

	active := make(map[string]EquipmentRow, len(rows))
	for _, r := range rows {
		active[r.EquipmentID] = r
	}
	return active, nil
}

// resolveEquipment enriches snapshot rows with their business key and active
// location surrogate key. Rows whose (location, building) pair has no active
// dimension row cannot be placed and are excluded from this snapshot's
// dimension and fact updates; the count is surfaced to the caller rather
// than dropped silently.
func resolveEquipment(date time.Time, rows []SnapshotRow, locations map[LocationKey]LocationRow) (resolved []EquipmentRow, misses int) {
	resolved = make([]EquipmentRow, 0, len(rows))
	for _, r := range rows {
		loc, ok := locations[LocationKey{Name: r.LocationName, Building: r.Building}]
		if !ok {
			misses++
			continue
		}
		resolved = append(resolved, EquipmentRow{
			EquipmentID:     r.ResolveID(),
			LocationKey:     loc.LocationKey,
			AssetTag:        r.AssetTag,
			Barcode:         r.Barcode,
			DeviceName:      r.DeviceName,
			DeviceType:      r.DeviceType,
			IPAddress:       r.IPAddress,
			Make:            r.Make,
			Model:           r.Model,
			SerialNumber:    r.SerialNumber,
			SimpleModel:     r.SimpleModel,
			PortCount:       r.PortCount,
			PrimaryPurpose:  r.PrimaryPurpose,
			Category:        r.Category,
			PurposeID:       r.PurposeID,
			RackRoomNumber:  r.RackRoomNumber,
			ReplacementCost: r.ReplacementCost,
			EffectiveDate:   date,
			RetirementDate:  OpenEnd,
			LastUpdateDate:  date,
		})
	}
	return resolved, misses
}

// updateEquipment merges the snapshot's resolved equipment rows into
// dim_equipment. Retired rows additionally get last_update_date set to the
// snapshot date and are retained for the fact loader.
func updateEquipment(ctx context.Context, tx pgx.Tx, date time.Time, rows []SnapshotRow, locations map[LocationKey]LocationRow) (equipmentResult, error) {
	active, err := activeEquipment(ctx, tx)
	if err != nil {
		return equipmentResult{}, err
	}

	resolved, misses := resolveEquipment(date, rows, locations)

	merge := Reconcile(resolved, func(r EquipmentRow) string { return r.EquipmentID }, active)

	if len(merge.Expire) > 0 {
		keys := make([]int64, 0, len(merge.Expire))
		for _, row := range merge.Expire {
			keys = append(keys, row.EquipmentKey)
			delete(active, row.EquipmentID)
		}
		if _, err := tx.Exec(ctx, `
UPDATE dim_equipment
SET retirement_date = $1,
    last_update_date = $1
WHERE equipment_key = ANY($2)
`, date, keys); err != nil {
			return equipmentResult{}, fmt.Errorf("retire equipment: %w", err)
		}
	}

	for i, row := range merge.Insert {
		if err := tx.QueryRow(ctx, `
INSERT INTO dim_equipment (
	equipment_id, location_key, asset_tag, barcode, device_name, device_type,
	ip_address, make, model, serial_number, simple_model, port_count,
	primary_purpose, category, purpose_id, rack_room_number, replacement_cost,
	effective_date, retirement_date, last_update_date
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
RETURNING equipment_key
`, row.EquipmentID, row.LocationKey, row.AssetTag, row.Barcode, row.DeviceName,
			row.DeviceType, row.IPAddress, row.Make, row.Model, row.SerialNumber,
			row.SimpleModel, row.PortCount, row.PrimaryPurpose, row.Category,
			row.PurposeID, row.RackRoomNumber, row.ReplacementCost,
			row.EffectiveDate, row.RetirementDate, row.LastUpdateDate,
		).Scan(&row.EquipmentKey); err != nil {
			return equipmentResult{}, fmt.Errorf("insert equipment %s: %w", row.EquipmentID, err)
		}
		merge.Insert[i] = row
		active[row.EquipmentID] = row
	}

	return equipmentResult{
		Active:  active,
		Retired: merge.Expire,
		Stats: equipmentStats{
			Inserted:       len(merge.Insert),
			Retired:        len(merge.Expire),
			Carried:        merge.Carried,
			LocationMisses: misses,
		},
	}, nil
}
