package migrations

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func init() {
	goose.AddMigrationContext(upInit, downInit)
}

type DateCalendar struct {
	DateKey     time.Time `gorm:"column:date_key;type:date;primaryKey"`
	CalYear     int       `gorm:"column:cal_year;type:int;not null"`
	CalMonth    int       `gorm:"column:cal_month;type:int;not null"`
	CalWeekOfYr int       `gorm:"column:cal_week_of_year;type:int;not null"`
}

func (DateCalendar) TableName() string { return "dim_date_calendar" }

type Location struct {
	LocationKey  int64     `gorm:"column:location_key;type:bigserial;primaryKey"`
	LocationName string    `gorm:"column:location_name;type:text;not null;index:idx_location_natural"`
	Building     string    `gorm:"column:building;type:text;not null;index:idx_location_natural"`
	EffectiveDt  time.Time `gorm:"column:effective_dt;type:date;not null"`
	ExpirationDt time.Time `gorm:"column:expiration_dt;type:date;not null;index"`
}

func (Location) TableName() string { return "dim_location" }

type Equipment struct {
	EquipmentKey    int64     `gorm:"column:equipment_key;type:bigserial;primaryKey"`
	EquipmentID     string    `gorm:"column:equipment_id;type:text;not null;index"`
	LocationKey     int64     `gorm:"column:location_key;type:bigint;not null"`
	AssetTag        *string   `gorm:"column:asset_tag;type:text"`
	Barcode         *string   `gorm:"column:barcode;type:text"`
	DeviceName      string    `gorm:"column:device_name;type:text;not null"`
	DeviceType      *string   `gorm:"column:device_type;type:text"`
	IPAddress       *string   `gorm:"column:ip_address;type:text"`
	Make            *string   `gorm:"column:make;type:text"`
	Model           *string   `gorm:"column:model;type:text"`
	SerialNumber    *string   `gorm:"column:serial_number;type:text"`
	SimpleModel     *string   `gorm:"column:simple_model;type:text"`
	PortCount       *int32    `gorm:"column:port_count;type:int"`
	PrimaryPurpose  *string   `gorm:"column:primary_purpose;type:text"`
	Category        *string   `gorm:"column:category;type:text"`
	PurposeID       *string   `gorm:"column:purpose_id;type:text"`
	RackRoomNumber  *string   `gorm:"column:rack_room_number;type:text"`
	ReplacementCost *float64  `gorm:"column:replacement_cost;type:numeric"`
	EffectiveDate   time.Time `gorm:"column:effective_date;type:date;not null"`
	RetirementDate  time.Time `gorm:"column:retirement_date;type:date;not null;index"`
	LastUpdateDate  time.Time `gorm:"column:last_update_date;type:date;not null"`
	Location        Location  `gorm:"foreignKey:LocationKey;references:LocationKey;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (Equipment) TableName() string { return "dim_equipment" }

type InventoryFact struct {
	ID           int64     `gorm:"column:id;type:bigserial;primaryKey"`
	EquipmentKey int64     `gorm:"column:equipment_key;type:bigint;not null;index"`
	LocationKey  int64     `gorm:"column:location_key;type:bigint;not null"`
	DateKey      time.Time `gorm:"column:date_key;type:date;not null;index"`
	IsDeployed   int16     `gorm:"column:is_deployed;type:smallint;not null"`
	HasChanged   int16     `gorm:"column:has_changed;type:smallint;not null"`
	Equipment    Equipment `gorm:"foreignKey:EquipmentKey;references:EquipmentKey;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Location     Location  `gorm:"foreignKey:LocationKey;references:LocationKey;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (InventoryFact) TableName() string { return "fact_inventory" }

type StageAssetReport struct {
	ID              int64     `gorm:"column:id;type:bigserial;primaryKey"`
	LocationName    *string   `gorm:"column:location;type:text"`
	Building        *string   `gorm:"column:bldg;type:text"`
	AssetTag        *string   `gorm:"column:asset_tag;type:text"`
	Barcode         *string   `gorm:"column:barcode;type:text"`
	DeviceName      *string   `gorm:"column:device_name;type:text"`
	DeviceType      *string   `gorm:"column:device_type;type:text"`
	IPAddress       *string   `gorm:"column:ip_address;type:text"`
	Make            *string   `gorm:"column:make;type:text"`
	Model           *string   `gorm:"column:model;type:text"`
	SerialNumber    *string   `gorm:"column:serial_number;type:text"`
	SimpleModel     *string   `gorm:"column:simple_model;type:text"`
	PortCount       *string   `gorm:"column:port_count;type:text"`
	PrimaryPurpose  *string   `gorm:"column:primary_purpose;type:text"`
	Category        *string   `gorm:"column:category;type:text"`
	PurposeID       *string   `gorm:"column:purpose_id;type:text"`
	RackRoomNumber  *string   `gorm:"column:rack_room_number;type:text"`
	ReplacementCost *string   `gorm:"column:replacement_cost;type:text"`
	LoadingDate     time.Time `gorm:"column:loading_date;type:date;not null"`
}

func (StageAssetReport) TableName() string { return "stage_asset_report" }

type LoadAudit struct {
	ID      int64             `gorm:"column:id;type:bigserial;primaryKey"`
	RunID   uuid.UUID         `gorm:"column:run_id;type:uuid;not null"`
	DateKey time.Time         `gorm:"column:date_key;type:date;not null;index"`
	Details datatypes.JSONMap `gorm:"column:details;type:jsonb"`
	At      time.Time         `gorm:"column:at;type:timestamptz;not null;default:now();autoCreateTime"`
}

func (LoadAudit) TableName() string { return "load_audit" }

func upInit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: tx, PreferSimpleProtocol: true}), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}

	if err := gormDB.WithContext(ctx).AutoMigrate(
		&DateCalendar{},
		&Location{},
		&Equipment{},
		&InventoryFact{},
		&StageAssetReport{},
		&LoadAudit{},
	); err != nil {
		return err
	}

	m := gormDB.WithContext(ctx).Migrator()
	if err := m.CreateConstraint(&Equipment{}, "Location"); err != nil {
		return err
	}
	if err := m.CreateConstraint(&InventoryFact{}, "Equipment"); err != nil {
		return err
	}
	if err := m.CreateConstraint(&InventoryFact{}, "Location"); err != nil {
		return err
	}

	return nil
}

func downInit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: tx, PreferSimpleProtocol: true}), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Migrator().DropTable(
		&LoadAudit{},
		&StageAssetReport{},
		&InventoryFact{},
		&Equipment{},
		&Location{},
		&DateCalendar{},
	)
}
