package warehouse

import (
	"strings"
	"unicode"
)

// EquipmentID derives the stable business key for a device from its raw
// snapshot fields. The device name is truncated at its first '.', then the
// serial number is appended when present, otherwise the rack/room number.
// Presence is a null check only: an empty but present serial still wins over
// the rack/room number. Whitespace is removed from the appended part and any
// literal "nan" left over from stringified missing values is dropped, so the
// key is identical across snapshots for the same physical device.
func EquipmentID(deviceName string, serialNumber, rackRoomNumber *string) string {
	name, _, _ := strings.Cut(deviceName, ".")

	var suffix string
	switch {
	case serialNumber != nil:
		suffix = *serialNumber
	case rackRoomNumber != nil:
		suffix = *rackRoomNumber
	}

	id := name + stripSpace(suffix)
	return strings.ReplaceAll(id, "nan", "")
}

func stripSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ResolveID is EquipmentID applied to a snapshot row.
func (r SnapshotRow) ResolveID() string {
	return EquipmentID(r.DeviceName, r.SerialNumber, r.RackRoomNumber)
}
