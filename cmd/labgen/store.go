package main

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one archived allocation: enough metadata to list it, plus the
// full plan table in run_segments / run_interfaces.
type Run struct {
	ID        int64
	CreatedAt string
	Lab       string
	Pool      string
	Area      string
	Checksum  string
	Devices   int
	Segments  int
}

func sqliteDSN(raw string) string {
	if strings.Contains(raw, "_pragma=foreign_keys") {
		return raw
	}
	sep := "?"
	if strings.Contains(raw, "?") {
		sep = "&"
	}
	return raw + sep + "_pragma=foreign_keys(1)"
}

func openStore(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func saveRun(db *sql.DB, plan *Plan) (int64, error) {
	b := bundleFromPlan(plan)
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO runs(created_at, lab, pool, area, checksum, devices, segments)
		VALUES(?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339),
		b.Lab, b.Pool, b.Area,
		checksumSHA256(planTableText(b)),
		len(plan.Devices), len(b.Segments),
	)
	if err != nil {
		return 0, err
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, s := range b.Segments {
		if _, err := tx.Exec(`
			INSERT INTO run_segments(run_id, name, block, degree, circuit, pinned, mgmt)
			VALUES(?, ?, ?, ?, ?, ?, ?)`,
			runID, s.Name, s.Block, s.Degree, s.Circuit,
			boolToInt(s.Pinned), boolToInt(s.Mgmt),
		); err != nil {
			return 0, err
		}
	}
	for _, r := range b.Interfaces {
		if _, err := tx.Exec(`
			INSERT INTO run_interfaces(run_id, device, iface, segment, address, prefix, circuit, level, area, metric, pinned)
			VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, r.Device, r.Iface, r.Segment, r.Address, r.Prefix,
			r.Circuit, r.Level, r.Area, r.Metric, boolToInt(r.Pinned),
		); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

func listRuns(db *sql.DB) ([]Run, error) {
	rows, err := db.Query(`
		SELECT id, created_at, lab, pool, area, checksum, devices, segments
		FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.Lab, &r.Pool, &r.Area, &r.Checksum, &r.Devices, &r.Segments); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func runByID(db *sql.DB, runID int64) (Run, bool, error) {
	var r Run
	err := db.QueryRow(`
		SELECT id, created_at, lab, pool, area, checksum, devices, segments
		FROM runs WHERE id=?`, runID).
		Scan(&r.ID, &r.CreatedAt, &r.Lab, &r.Pool, &r.Area, &r.Checksum, &r.Devices, &r.Segments)
	if err == sql.ErrNoRows {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, err
	}
	return r, true, nil
}

// bundleFromRun rebuilds a PlanBundle from the archive. Row order follows
// insertion order (the id column), so the bundle round-trips byte for byte
// through planTableText.
func bundleFromRun(db *sql.DB, runID int64) (PlanBundle, error) {
	run, ok, err := runByID(db, runID)
	if err != nil {
		return PlanBundle{}, err
	}
	if !ok {
		return PlanBundle{}, fmt.Errorf("run %d not found", runID)
	}
	b := PlanBundle{
		SchemaVersion: planSchemaVersion,
		Lab:           run.Lab,
		Pool:          run.Pool,
		Area:          run.Area,
	}

	segRows, err := db.Query(`
		SELECT name, block, degree, circuit, pinned, mgmt
		FROM run_segments WHERE run_id=? ORDER BY id`, runID)
	if err != nil {
		return PlanBundle{}, err
	}
	defer segRows.Close()
	for segRows.Next() {
		var s BundleSegment
		var pinned, mgmt int
		if err := segRows.Scan(&s.Name, &s.Block, &s.Degree, &s.Circuit, &pinned, &mgmt); err != nil {
			return PlanBundle{}, err
		}
		s.Pinned = pinned != 0
		s.Mgmt = mgmt != 0
		b.Segments = append(b.Segments, s)
	}
	if err := segRows.Err(); err != nil {
		return PlanBundle{}, err
	}

	ifRows, err := db.Query(`
		SELECT device, iface, segment, address, prefix, circuit, level, area, metric, pinned
		FROM run_interfaces WHERE run_id=? ORDER BY id`, runID)
	if err != nil {
		return PlanBundle{}, err
	}
	defer ifRows.Close()
	for ifRows.Next() {
		var r BundleInterface
		var pinned int
		if err := ifRows.Scan(&r.Device, &r.Iface, &r.Segment, &r.Address, &r.Prefix, &r.Circuit, &r.Level, &r.Area, &r.Metric, &pinned); err != nil {
			return PlanBundle{}, err
		}
		r.Pinned = pinned != 0
		b.Interfaces = append(b.Interfaces, r)
	}
	return b, ifRows.Err()
}

// latestRuns returns up to n most recent run IDs, oldest first.
func latestRuns(db *sql.DB, n int) ([]int64, error) {
	rows, err := db.Query(`SELECT id FROM runs ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	return ids, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
