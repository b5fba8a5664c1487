package main

import (
	"github.com/xuri/excelize/v2"
)

// exportXLSX renders the plan bundle as a workbook: a run summary sheet, one
// sheet for the interface table and one for the segment blocks.
func exportXLSX(b PlanBundle) ([]byte, error) {
	f := excelize.NewFile()
	runSheet := "Run"
	f.SetSheetName("Sheet1", runSheet)
	writeSheetRows(f, runSheet, buildRunSheet(b))

	ifaceSheet := "Interfaces"
	f.NewSheet(ifaceSheet)
	writeSheetRows(f, ifaceSheet, buildInterfacesSheet(b.Interfaces))

	segSheet := "Segments"
	f.NewSheet(segSheet)
	writeSheetRows(f, segSheet, buildSegmentsSheet(b.Segments))

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func buildRunSheet(b PlanBundle) [][]interface{} {
	return [][]interface{}{
		{"Lab", b.Lab},
		{"Pool", b.Pool},
		{"Area", b.Area},
		{"Schema", b.SchemaVersion},
		{"Segments", len(b.Segments)},
		{"Interfaces", len(b.Interfaces)},
	}
}

func buildInterfacesSheet(rows []BundleInterface) [][]interface{} {
	out := [][]interface{}{
		{"Device", "Iface", "Segment", "Address", "Prefix", "Circuit", "Level", "Area", "Metric", "Pinned"},
	}
	for _, r := range rows {
		out = append(out, []interface{}{
			r.Device, r.Iface, r.Segment, r.Address, r.Prefix,
			r.Circuit, r.Level, r.Area, r.Metric, r.Pinned,
		})
	}
	return out
}

func buildSegmentsSheet(rows []BundleSegment) [][]interface{} {
	out := [][]interface{}{
		{"Segment", "Block", "Degree", "Circuit", "Pinned", "Mgmt"},
	}
	for _, s := range rows {
		out = append(out, []interface{}{
			s.Name, s.Block, s.Degree, s.Circuit, s.Pinned, s.Mgmt,
		})
	}
	return out
}

func writeSheetRows(f *excelize.File, sheet string, rows [][]interface{}) {
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		_ = f.SetSheetRow(sheet, cell, &row)
	}
}
