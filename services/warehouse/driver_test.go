package warehouse

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGuardOrder(t *testing.T) {
	last := date("2021-02-01")

	tests := []struct {
		name string
		date time.Time
		last *time.Time
		want error
	}{
		{name: "empty warehouse accepts any date", date: date("2021-01-04"), last: nil},
		{name: "later date accepted", date: date("2021-02-08"), last: &last},
		{name: "same date rejected", date: date("2021-02-01"), last: &last, want: ErrOutOfOrder},
		{name: "earlier date rejected", date: date("2021-01-25"), last: &last, want: ErrOutOfOrder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guardOrder(tt.date, tt.last)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("guardOrder() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("guardOrder() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSnapshotDate(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		want    string
		wantErr bool
	}{
		{name: "plain csv", file: "asset-report-2021-01-04.csv", want: "2021-01-04"},
		{name: "compressed", file: "asset-report-2021-02-15.csv.zst", want: "2021-02-15"},
		{name: "prefixed", file: "weekly asset-report-2021-03-01 final.csv", want: "2021-03-01"},
		{name: "no date", file: "asset-report.csv", wantErr: true},
		{name: "unrelated file", file: "notes.txt", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SnapshotDate(tt.file)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SnapshotDate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if DateKeyFormat(got) != tt.want {
				t.Fatalf("SnapshotDate() = %s, want %s", DateKeyFormat(got), tt.want)
			}
		})
	}
}

func TestDiscoverSnapshots(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"asset-report-2021-02-01.csv",
		"asset-report-2021-01-04.csv",
		"asset-report-2021-01-18.csv.gz",
		"README.md",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := DiscoverSnapshots(dir)
	if err != nil {
		t.Fatalf("DiscoverSnapshots() error = %v", err)
	}

	want := []string{"2021-01-04", "2021-01-18", "2021-02-01"}
	if len(files) != len(want) {
		t.Fatalf("got %d files, want %d", len(files), len(want))
	}
	for i, f := range files {
		if DateKeyFormat(f.Date) != want[i] {
			t.Fatalf("file %d = %s, want %s", i, DateKeyFormat(f.Date), want[i])
		}
	}
}

func TestDiscoverSnapshotsDuplicateDate(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"asset-report-2021-01-04.csv",
		"old asset-report-2021-01-04.csv",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := DiscoverSnapshots(dir); err == nil {
		t.Fatal("DiscoverSnapshots() accepted two files for the same date")
	}
}

func TestBuildDeployedFacts(t *testing.T) {
	loadDate := date("2021-01-11")
	locations := activeLocationSet(
		LocationRow{LocationKey: 1, LocationName: "A", Building: "B1", ExpirationDt: OpenEnd},
	)
	equipment := map[string]EquipmentRow{
		"host-1SN1": {EquipmentKey: 10, EquipmentID: "host-1SN1", LocationKey: 1, RetirementDate: OpenEnd},
	}

	rows := []SnapshotRow{
		{LocationName: "A", Building: "B1", DeviceName: "host-1", SerialNumber: strPtr("SN1")},
		// Same device twice: one fact row per equipment per date.
		{LocationName: "A", Building: "B1", DeviceName: "host-1", SerialNumber: strPtr("SN1")},
		// Unknown location: dropped and counted.
		{LocationName: "Z", Building: "B9", DeviceName: "host-2", SerialNumber: strPtr("SN2")},
	}

	facts, dropped := buildDeployedFacts(loadDate, rows, locations, equipment)

	if len(facts) != 1 {
		t.Fatalf("got %d fact rows, want 1", len(facts))
	}
	want := FactRow{EquipmentKey: 10, LocationKey: 1, DateKey: loadDate, IsDeployed: 1, HasChanged: 0}
	if facts[0] != want {
		t.Fatalf("fact = %+v, want %+v", facts[0], want)
	}
	if dropped != 1 {
		t.Fatalf("dropped = %d, want 1", dropped)
	}
}

func TestFactCompleteness(t *testing.T) {
	// Deployed fact rows equal successfully joined active devices; change
	// rows equal devices retired in the same snapshot.
	loadDate := date("2021-01-11")
	locations := activeLocationSet(
		LocationRow{LocationKey: 1, LocationName: "A", Building: "B1", ExpirationDt: OpenEnd},
	)
	equipment := map[string]EquipmentRow{
		"host-1SN1": {EquipmentKey: 10, LocationKey: 1, EquipmentID: "host-1SN1"},
		"host-2SN2": {EquipmentKey: 11, LocationKey: 1, EquipmentID: "host-2SN2"},
	}
	retired := []EquipmentRow{
		{EquipmentKey: 9, LocationKey: 1, EquipmentID: "host-0SN0"},
	}

	rows := []SnapshotRow{
		{LocationName: "A", Building: "B1", DeviceName: "host-1", SerialNumber: strPtr("SN1")},
		{LocationName: "A", Building: "B1", DeviceName: "host-2", SerialNumber: strPtr("SN2")},
	}

	deployed, dropped := buildDeployedFacts(loadDate, rows, locations, equipment)
	changes := buildChangeFacts(loadDate, retired)

	if len(deployed) != len(equipment) || dropped != 0 {
		t.Fatalf("deployed = %d (dropped %d), want %d joined rows", len(deployed), dropped, len(equipment))
	}
	if len(changes) != len(retired) {
		t.Fatalf("changes = %d, want %d", len(changes), len(retired))
	}
}

func TestResolveEquipmentLocationMiss(t *testing.T) {
	loadDate := date("2021-01-11")
	locations := activeLocationSet(
		LocationRow{LocationKey: 1, LocationName: "A", Building: "B1", ExpirationDt: OpenEnd},
	)

	rows := []SnapshotRow{
		{LocationName: "A", Building: "B1", DeviceName: "host-1", SerialNumber: strPtr("SN1")},
		{LocationName: "Z", Building: "B9", DeviceName: "host-2", SerialNumber: strPtr("SN2")},
	}

	resolved, misses := resolveEquipment(loadDate, rows, locations)

	if len(resolved) != 1 {
		t.Fatalf("resolved %d rows, want 1", len(resolved))
	}
	if misses != 1 {
		t.Fatalf("misses = %d, want 1", misses)
	}
	r := resolved[0]
	if r.EquipmentID != "host-1SN1" || r.LocationKey != 1 {
		t.Fatalf("resolved = %+v", r)
	}
	if !r.EffectiveDate.Equal(loadDate) || !r.RetirementDate.Equal(OpenEnd) || !r.LastUpdateDate.Equal(loadDate) {
		t.Fatalf("dates = %v/%v/%v", r.EffectiveDate, r.RetirementDate, r.LastUpdateDate)
	}
}

func TestNewDateRow(t *testing.T) {
	row := NewDateRow(date("2021-01-04"))
	if row.CalYear != 2021 || row.CalMonth != 1 {
		t.Fatalf("year/month = %d/%d", row.CalYear, row.CalMonth)
	}
	// 2021-01-04 is the Monday of ISO week 1.
	if row.CalWeekOfYr != 1 {
		t.Fatalf("week = %d, want 1", row.CalWeekOfYr)
	}
}
