package main

import "net/netip"

type Conflict struct {
	Kind   string
	Detail string
}

// verifyPlan re-checks every allocation invariant on a finished table. The
// allocator is expected to never produce a conflict; generate refuses to
// emit anything if one shows up, and `labgen check` exposes the same pass
// directly.
func verifyPlan(plan *Plan, topo *Topology, cfg Config) []Conflict {
	var conflicts []Conflict

	add := func(kind, detail string) {
		conflicts = append(conflicts, Conflict{Kind: kind, Detail: detail})
	}

	for i, a := range plan.Blocks {
		if !prefixWithin(plan.Pool, a.Block) {
			add("OUT_OF_POOL", "segment "+a.Segment+" block "+a.Block.String()+" outside pool "+plan.Pool.String())
		}
		for _, b := range plan.Blocks[i+1:] {
			if prefixesOverlap(a.Block, b.Block) {
				add("BLOCK_OVERLAP", "segments "+a.Segment+" and "+b.Segment+" overlap: "+a.Block.String()+" vs "+b.Block.String())
			}
		}
		want, err := prefixForDegree(a.Segment, a.Degree, cfg.MaxBlock)
		if err != nil {
			add("CAPACITY", err.Error())
			continue
		}
		if !a.Pinned && a.Block.Bits() != want {
			add("NOT_MINIMAL", "segment "+a.Segment+" has /"+itoa(a.Block.Bits())+", smallest sufficient is /"+itoa(want))
		}
		if a.Pinned && a.Block.Bits() > want {
			add("PINNED_TOO_SMALL", "segment "+a.Segment+" pinned block /"+itoa(a.Block.Bits())+" smaller than required /"+itoa(want))
		}
	}

	blocks := map[string]netip.Prefix{}
	for _, b := range plan.Blocks {
		blocks[b.Segment] = b.Block
	}
	seenAddr := map[netip.Addr]string{}
	seenIface := map[string]bool{}
	for _, r := range plan.Rows {
		key := r.Device + "/" + r.Iface
		if seenIface[key] {
			add("DUPLICATE_ROW", key+" appears more than once")
		}
		seenIface[key] = true
		block, ok := blocks[r.Segment]
		if !ok {
			add("NO_BLOCK", key+" references segment "+r.Segment+" without a block")
			continue
		}
		if !block.Contains(r.Addr) {
			add("ADDR_OUT_OF_BLOCK", key+" address "+r.Addr.String()+" outside "+block.String())
		}
		v := ipv4ToU32(r.Addr)
		if v == prefixNetworkU32(block) || v == prefixBroadcastU32(block) {
			add("ADDR_RESERVED", key+" uses the network or broadcast address "+r.Addr.String())
		}
		if owner, dup := seenAddr[r.Addr]; dup {
			add("ADDR_DUP", r.Addr.String()+" assigned to both "+owner+" and "+key)
		}
		seenAddr[r.Addr] = key
	}

	for _, d := range topo.Devices {
		for _, iface := range d.Ifaces {
			if !seenIface[d.Name+"/"+iface.Name()] {
				add("COVERAGE", d.Name+"/"+iface.Name()+" missing from the allocation table")
			}
		}
	}

	pins, err := resolvePins(topo, cfg, plan.Pool)
	if err == nil {
		for _, d := range topo.Devices {
			for _, iface := range d.Ifaces {
				addr, pinned := pins.byIface[iface]
				if !pinned {
					continue
				}
				row, ok := plan.RowFor(d.Name, iface.Name())
				if !ok || row.Addr != addr {
					add("PIN_MISMATCH", d.Name+"/"+iface.Name()+" expected pinned address "+addr.String())
				}
			}
		}
	}
	return conflicts
}
