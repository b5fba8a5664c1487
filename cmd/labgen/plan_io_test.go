package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestBundleFromPlan(t *testing.T) {
	_, plan, _ := allocateDemoLab(t)
	b := bundleFromPlan(plan)

	if b.SchemaVersion != planSchemaVersion {
		t.Fatalf("schema version %s, want %s", b.SchemaVersion, planSchemaVersion)
	}
	if b.Pool != "192.168.0.0/16" {
		t.Fatalf("pool %s", b.Pool)
	}
	if len(b.Segments) != len(plan.Blocks) {
		t.Fatalf("%d bundle segments, want %d", len(b.Segments), len(plan.Blocks))
	}
	if len(b.Interfaces) != len(plan.Rows) {
		t.Fatalf("%d bundle interfaces, want %d", len(b.Interfaces), len(plan.Rows))
	}
	for i, r := range plan.Rows {
		bi := b.Interfaces[i]
		if bi.Device != r.Device || bi.Iface != r.Iface || bi.Address != r.Addr.String() {
			t.Fatalf("bundle row %d does not match plan row: %+v vs %+v", i, bi, r)
		}
	}
}

func TestWritePlanFormats(t *testing.T) {
	_, plan, _ := allocateDemoLab(t)
	b := bundleFromPlan(plan)

	var buf bytes.Buffer
	if err := writePlanYAML(&buf, b); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	var fromYAML PlanBundle
	if err := yaml.Unmarshal(buf.Bytes(), &fromYAML); err != nil {
		t.Fatalf("yaml parse: %v", err)
	}
	if len(fromYAML.Interfaces) != len(b.Interfaces) {
		t.Fatalf("yaml round-trip lost rows")
	}

	buf.Reset()
	if err := writePlanJSON(&buf, b); err != nil {
		t.Fatalf("json: %v", err)
	}
	var fromJSON PlanBundle
	if err := json.Unmarshal(buf.Bytes(), &fromJSON); err != nil {
		t.Fatalf("json parse: %v", err)
	}
	if fromJSON.Lab != b.Lab {
		t.Fatalf("json round-trip lab %s, want %s", fromJSON.Lab, b.Lab)
	}

	buf.Reset()
	if err := writePlanCSV(&buf, b); err != nil {
		t.Fatalf("csv: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("csv parse: %v", err)
	}
	if len(records) != len(b.Interfaces)+1 {
		t.Fatalf("csv has %d records, want header plus %d rows", len(records), len(b.Interfaces))
	}

	buf.Reset()
	if err := writePlanText(&buf, b); err != nil {
		t.Fatalf("text: %v", err)
	}
	if !strings.Contains(buf.String(), "snmp_manager") {
		t.Fatalf("text table missing snmp_manager:\n%s", buf.String())
	}
}

func TestPlanTableText(t *testing.T) {
	_, plan, _ := allocateDemoLab(t)
	text := planTableText(bundleFromPlan(plan))

	wantLines := []string{
		"segment A 192.168.0.0/30 point-to-point",
		"segment C 192.168.1.0/28 broadcast",
		"r1 eth0 A 192.168.0.1/30 point-to-point level-2 0001 10",
		"snmp_manager eth0 C 192.168.1.7/28 broadcast level-2 0001 10",
	}
	for _, want := range wantLines {
		if !strings.Contains(text, want) {
			t.Fatalf("plan table missing %q:\n%s", want, text)
		}
	}
}

func TestUnifiedDiff(t *testing.T) {
	before := "a\nb\nc\n"
	if out := unifiedDiff(before, before); out != "" {
		t.Fatalf("identical inputs diffed:\n%s", out)
	}

	after := "a\nx\nc\n"
	out := unifiedDiff(before, after)
	if !strings.Contains(out, "- b") || !strings.Contains(out, "+ x") {
		t.Fatalf("diff missing changed lines:\n%s", out)
	}
	if strings.Contains(out, "- a") || strings.Contains(out, "+ c") {
		t.Fatalf("diff touched unchanged lines:\n%s", out)
	}

	out = unifiedDiff("", "only\n")
	if out != "+ only\n" {
		t.Fatalf("pure addition diff %q", out)
	}
}

func TestExportXLSX(t *testing.T) {
	_, plan, _ := allocateDemoLab(t)
	out, err := exportXLSX(bundleFromPlan(plan))
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	// XLSX is a zip container.
	if len(out) < 4 || out[0] != 'P' || out[1] != 'K' {
		t.Fatalf("output does not look like a workbook")
	}
}
