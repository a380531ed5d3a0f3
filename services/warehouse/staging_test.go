package warehouse

import (
	"errors"
	"strings"
	"testing"
)

const sampleHeader = "location,bldg,asset_tag,barcode,device_name,device_type,ip_address,make,model,serial_number,simple_model,port_count,primary_purpose,category,purpose_id,rack_room_number,replacement_cost"

func TestParseSnapshotCSV(t *testing.T) {
	csv := sampleHeader + "\n" +
		"North Campus,B1,AT1,BC1,core-sw-01.campus.example.edu,switch,10.0.0.1,Cisco,C9300,FDO1234X0YZ,C9300-24,24.0,distribution,network,7,B1-R12,\"$12,500.00\"\n" +
		"North Campus,B1,AT2,,edge-ap-7.campus.example.edu,access point,10.0.0.7,Aruba,AP-515,nan,AP-515,,wireless,network,3,Annex 204,1200\n"

	rows, err := parseSnapshotCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("parseSnapshotCSV() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	first := rows[0]
	if first.LocationName != "North Campus" || first.Building != "B1" {
		t.Fatalf("location = %q/%q", first.LocationName, first.Building)
	}
	if first.SerialNumber == nil || *first.SerialNumber != "FDO1234X0YZ" {
		t.Fatalf("serial = %v", first.SerialNumber)
	}
	if first.PortCount == nil || *first.PortCount != 24 {
		t.Fatalf("port count = %v", first.PortCount)
	}
	if first.ReplacementCost == nil || *first.ReplacementCost != 12500 {
		t.Fatalf("replacement cost = %v", first.ReplacementCost)
	}

	second := rows[1]
	if second.SerialNumber != nil {
		t.Fatalf("nan serial should parse as missing, got %v", *second.SerialNumber)
	}
	if second.Barcode != nil {
		t.Fatalf("empty barcode should parse as missing, got %v", *second.Barcode)
	}
	if second.PortCount != nil {
		t.Fatalf("empty port count should parse as missing, got %v", *second.PortCount)
	}
	if got := second.ResolveID(); got != "edge-ap-7Annex204" {
		t.Fatalf("ResolveID() = %q, want edge-ap-7Annex204", got)
	}
}

func TestParseSnapshotCSVMissingColumn(t *testing.T) {
	csv := "location,bldg,device_name\nA,B1,host-1\n"

	_, err := parseSnapshotCSV(strings.NewReader(csv))
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("error = %v, want ErrMissingColumn", err)
	}
}

func TestParseSnapshotCSVHeaderNormalisation(t *testing.T) {
	header := strings.ReplaceAll(sampleHeader, "device_name", "Device Name")
	csv := header + "\nA,B1,AT,BC,host-1,switch,10.0.0.1,Cisco,C9300,SN,C9300,8,core,network,1,R1,100\n"

	rows, err := parseSnapshotCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("parseSnapshotCSV() error = %v", err)
	}
	if rows[0].DeviceName != "host-1" {
		t.Fatalf("device name = %q, want host-1", rows[0].DeviceName)
	}
}

func TestCleanCell(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want *string
	}{
		{name: "empty", in: "", want: nil},
		{name: "whitespace only", in: "   ", want: nil},
		{name: "nan literal", in: "nan", want: nil},
		{name: "NULL literal", in: "NULL", want: nil},
		{name: "value trimmed", in: "  SN-1 ", want: strPtr("SN-1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cleanCell(tt.in)
			switch {
			case tt.want == nil && got != nil:
				t.Fatalf("cleanCell(%q) = %q, want nil", tt.in, *got)
			case tt.want != nil && (got == nil || *got != *tt.want):
				t.Fatalf("cleanCell(%q) = %v, want %q", tt.in, got, *tt.want)
			}
		})
	}
}
