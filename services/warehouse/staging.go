package warehouse

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/klauspost/compress/zstd"
)

// ErrMissingColumn marks a snapshot file whose header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// requiredColumns are the raw export columns a snapshot must carry, after
// header normalisation (lowercased, spaces replaced with underscores).
var requiredColumns = []string{
	"location", "bldg", "asset_tag", "barcode", "device_name", "device_type",
	"ip_address", "make", "model", "serial_number", "simple_model",
	"port_count", "primary_purpose", "category", "purpose_id",
	"rack_room_number", "replacement_cost",
}

// ParseSnapshotFile reads one asset-report export into a Snapshot. The
// snapshot date comes from the file name; .gz and .zst files are
// decompressed transparently. Any malformed input is rejected here, before
// the load touches the warehouse.
func ParseSnapshotFile(path string) (Snapshot, error) {
	date, err := SnapshotDate(filepath.Base(path))
	if err != nil {
		return Snapshot{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, err
	}
	defer f.Close()

	var reader io.Reader = f
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			return Snapshot{}, fmt.Errorf("open zstd stream %s: %w", path, err)
		}
		defer zr.Close()
		reader = zr
	case ".gz":
		gr, err := gzip.NewReader(f)
		if err != nil {
			return Snapshot{}, fmt.Errorf("open gzip stream %s: %w", path, err)
		}
		defer gr.Close()
		reader = gr
	}

	rows, err := parseSnapshotCSV(reader)
	if err != nil {
		return Snapshot{}, fmt.Errorf("parse %s: %w", path, err)
	}

	return Snapshot{Date: date, Path: path, Rows: rows}, nil
}

func parseSnapshotCSV(r io.Reader) ([]SnapshotRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[normalizeColumn(col)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	var rows []SnapshotRow
	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", line, err)
		}
		line++

		cell := func(col string) *string { return cleanCell(record[idx[col]]) }

		row := SnapshotRow{
			AssetTag:        cell("asset_tag"),
			Barcode:         cell("barcode"),
			DeviceType:      cell("device_type"),
			IPAddress:       cell("ip_address"),
			Make:            cell("make"),
			Model:           cell("model"),
			SerialNumber:    cell("serial_number"),
			SimpleModel:     cell("simple_model"),
			PrimaryPurpose:  cell("primary_purpose"),
			Category:        cell("category"),
			PurposeID:       cell("purpose_id"),
			RackRoomNumber:  cell("rack_room_number"),
			PortCount:       parsePortCount(cell("port_count")),
			ReplacementCost: parseCost(cell("replacement_cost")),
		}
		if v := cell("location"); v != nil {
			row.LocationName = *v
		}
		if v := cell("bldg"); v != nil {
			row.Building = *v
		}
		if v := cell("device_name"); v != nil {
			row.DeviceName = *v
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func normalizeColumn(col string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(col), " ", "_"))
}

// cleanCell trims a raw cell and maps stringified missing values to nil.
// A present-but-blank quoted cell still counts as missing; only the literal
// nan/null spellings and emptiness are treated as absent.
func cleanCell(raw string) *string {
	v := strings.TrimSpace(raw)
	switch strings.ToLower(v) {
	case "", "nan", "null", "none":
		return nil
	}
	return &v
}

func parsePortCount(raw *string) *int32 {
	if raw == nil {
		return nil
	}
	// Exports sometimes carry counts as floats ("24.0").
	f, err := strconv.ParseFloat(*raw, 64)
	if err != nil {
		return nil
	}
	n := int32(f)
	return &n
}

func parseCost(raw *string) *float64 {
	if raw == nil {
		return nil
	}
	v := strings.NewReplacer("$", "", ",", "").Replace(*raw)
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return nil
	}
	return &f
}

// stageSnapshot replaces the staging table contents with the snapshot's raw
// rows, mirroring the export for audit and debugging. Runs inside the
// snapshot transaction so a failed load leaves the previous stage intact.
func stageSnapshot(ctx context.Context, tx pgx.Tx, snap Snapshot) (int64, error) {
	if _, err := tx.Exec(ctx, `TRUNCATE stage_asset_report`); err != nil {
		return 0, fmt.Errorf("truncate stage: %w", err)
	}

	columns := []string{
		"location", "bldg", "asset_tag", "barcode", "device_name",
		"device_type", "ip_address", "make", "model", "serial_number",
		"simple_model", "port_count", "primary_purpose", "category",
		"purpose_id", "rack_room_number", "replacement_cost", "loading_date",
	}

	copied, err := tx.CopyFrom(ctx, pgx.Identifier{"stage_asset_report"}, columns,
		pgx.CopyFromSlice(len(snap.Rows), func(i int) ([]any, error) {
			r := snap.Rows[i]
			return []any{
				r.LocationName, r.Building, r.AssetTag, r.Barcode,
				r.DeviceName, r.DeviceType, r.IPAddress, r.Make, r.Model,
				r.SerialNumber, r.SimpleModel, formatPortCount(r.PortCount),
				r.PrimaryPurpose, r.Category, r.PurposeID, r.RackRoomNumber,
				formatCost(r.ReplacementCost), snap.Date,
			}, nil
		}))
	if err != nil {
		return 0, fmt.Errorf("copy stage rows: %w", err)
	}

	return copied, nil
}

func formatPortCount(v *int32) *string {
	if v == nil {
		return nil
	}
	s := strconv.FormatInt(int64(*v), 10)
	return &s
}

func formatCost(v *float64) *string {
	if v == nil {
		return nil
	}
	s := strconv.FormatFloat(*v, 'f', -1, 64)
	return &s
}

// DateKeyFormat renders a date the way it is keyed throughout the warehouse.
func DateKeyFormat(t time.Time) string {
	return t.Format("2006-01-02")
}
