package main

import (
	"net/netip"
	"testing"
)

func hasConflict(conflicts []Conflict, kind string) bool {
	for _, c := range conflicts {
		if c.Kind == kind {
			return true
		}
	}
	return false
}

func TestVerifyPlanClean(t *testing.T) {
	topo, plan, cfg := allocateDemoLab(t)
	if conflicts := verifyPlan(plan, topo, cfg); len(conflicts) != 0 {
		t.Fatalf("unexpected conflicts: %v", conflicts)
	}
}

func TestVerifyPlanDetectsTampering(t *testing.T) {
	t.Run("duplicate address", func(t *testing.T) {
		topo, plan, cfg := allocateDemoLab(t)
		plan.Rows[1].Addr = plan.Rows[0].Addr
		conflicts := verifyPlan(plan, topo, cfg)
		if !hasConflict(conflicts, "ADDR_DUP") {
			t.Fatalf("expected ADDR_DUP, got %v", conflicts)
		}
	})

	t.Run("missing row", func(t *testing.T) {
		topo, plan, cfg := allocateDemoLab(t)
		plan.Rows = plan.Rows[:len(plan.Rows)-1]
		conflicts := verifyPlan(plan, topo, cfg)
		if !hasConflict(conflicts, "COVERAGE") {
			t.Fatalf("expected COVERAGE, got %v", conflicts)
		}
	})

	t.Run("moved pin", func(t *testing.T) {
		topo, plan, cfg := allocateDemoLab(t)
		for i := range plan.Rows {
			if plan.Rows[i].Device == "snmp_manager" {
				plan.Rows[i].Addr = netip.MustParseAddr("192.168.1.9")
			}
		}
		conflicts := verifyPlan(plan, topo, cfg)
		if !hasConflict(conflicts, "PIN_MISMATCH") {
			t.Fatalf("expected PIN_MISMATCH, got %v", conflicts)
		}
	})

	t.Run("address outside block", func(t *testing.T) {
		topo, plan, cfg := allocateDemoLab(t)
		plan.Rows[0].Addr = netip.MustParseAddr("192.168.200.1")
		conflicts := verifyPlan(plan, topo, cfg)
		if !hasConflict(conflicts, "ADDR_OUT_OF_BLOCK") {
			t.Fatalf("expected ADDR_OUT_OF_BLOCK, got %v", conflicts)
		}
	})

	t.Run("network address used", func(t *testing.T) {
		topo, plan, cfg := allocateDemoLab(t)
		block, _ := plan.BlockFor(plan.Rows[0].Segment)
		plan.Rows[0].Addr = block.Block.Masked().Addr()
		conflicts := verifyPlan(plan, topo, cfg)
		if !hasConflict(conflicts, "ADDR_RESERVED") {
			t.Fatalf("expected ADDR_RESERVED, got %v", conflicts)
		}
	})

	t.Run("oversized block", func(t *testing.T) {
		topo, plan, cfg := allocateDemoLab(t)
		for i := range plan.Blocks {
			if plan.Blocks[i].Segment == "A" {
				plan.Blocks[i].Block = netip.MustParsePrefix("192.168.0.0/29")
			}
		}
		conflicts := verifyPlan(plan, topo, cfg)
		if !hasConflict(conflicts, "NOT_MINIMAL") {
			t.Fatalf("expected NOT_MINIMAL, got %v", conflicts)
		}
	})

	t.Run("block outside pool", func(t *testing.T) {
		topo, plan, cfg := allocateDemoLab(t)
		plan.Blocks[0].Block = netip.MustParsePrefix("10.0.0.0/30")
		conflicts := verifyPlan(plan, topo, cfg)
		if !hasConflict(conflicts, "OUT_OF_POOL") {
			t.Fatalf("expected OUT_OF_POOL, got %v", conflicts)
		}
	})
}
