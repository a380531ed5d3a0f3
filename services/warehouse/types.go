package warehouse

import (
	"time"
)

// OpenEnd is the expiration/retirement value marking a dimension row as
// currently active. Closed rows carry the snapshot date that expired them.
var OpenEnd = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// SnapshotRow is one cleaned record from an asset-report export. Optional
// fields are nil when the CSV cell was empty or a stringified missing value.
type SnapshotRow struct {
	LocationName    string
	Building        string
	AssetTag        *string
	Barcode         *string
	DeviceName      string
	DeviceType      *string
	IPAddress       *string
	Make            *string
	Model           *string
	SerialNumber    *string
	SimpleModel     *string
	PortCount       *int32
	PrimaryPurpose  *string
	Category        *string
	PurposeID       *string
	RackRoomNumber  *string
	ReplacementCost *float64
}

// Snapshot is a dated inventory export ready for loading.
type Snapshot struct {
	Date time.Time
	Path string
	Rows []SnapshotRow
}

// LocationKey is the natural key of a location dimension row.
type LocationKey struct {
	Name     string
	Building string
}

// LocationRow is a dim_location record.
type LocationRow struct {
	LocationKey  int64     `db:"location_key"`
	LocationName string    `db:"location_name"`
	Building     string    `db:"building"`
	EffectiveDt  time.Time `db:"effective_dt"`
	ExpirationDt time.Time `db:"expiration_dt"`
}

// NaturalKey returns the (name, building) pair identifying the row.
func (r LocationRow) NaturalKey() LocationKey {
	return LocationKey{Name: r.LocationName, Building: r.Building}
}

// EquipmentRow is a dim_equipment record.
type EquipmentRow struct {
	EquipmentKey    int64     `db:"equipment_key"`
	EquipmentID     string    `db:"equipment_id"`
	LocationKey     int64     `db:"location_key"`
	AssetTag        *string   `db:"asset_tag"`
	Barcode         *string   `db:"barcode"`
	DeviceName      string    `db:"device_name"`
	DeviceType      *string   `db:"device_type"`
	IPAddress       *string   `db:"ip_address"`
	Make            *string   `db:"make"`
	Model           *string   `db:"model"`
	SerialNumber    *string   `db:"serial_number"`
	SimpleModel     *string   `db:"simple_model"`
	PortCount       *int32    `db:"port_count"`
	PrimaryPurpose  *string   `db:"primary_purpose"`
	Category        *string   `db:"category"`
	PurposeID       *string   `db:"purpose_id"`
	RackRoomNumber  *string   `db:"rack_room_number"`
	ReplacementCost *float64  `db:"replacement_cost"`
	EffectiveDate   time.Time `db:"effective_date"`
	RetirementDate  time.Time `db:"retirement_date"`
	LastUpdateDate  time.Time `db:"last_update_date"`
}

// FactRow is a fact_inventory record. Append-only; one row per
// (equipment_key, date_key) per event kind.
type FactRow struct {
	EquipmentKey int64     `db:"equipment_key"`
	LocationKey  int64     `db:"location_key"`
	DateKey      time.Time `db:"date_key"`
	IsDeployed   int16     `db:"is_deployed"`
	HasChanged   int16     `db:"has_changed"`
}

// DateRow is a dim_date_calendar record.
type DateRow struct {
	DateKey     time.Time `db:"date_key"`
	CalYear     int       `db:"cal_year"`
	CalMonth    int       `db:"cal_month"`
	CalWeekOfYr int       `db:"cal_week_of_year"`
}

// NewDateRow derives the calendar attributes for a snapshot date.
func NewDateRow(date time.Time) DateRow {
	_, week := date.ISOWeek()
	return DateRow{
		DateKey:     date,
		CalYear:     date.Year(),
		CalMonth:    int(date.Month()),
		CalWeekOfYr: week,
	}
}
