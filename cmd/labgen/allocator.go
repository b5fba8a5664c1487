package main

import (
	"net/netip"
)

// SegmentBlock is the carved CIDR block for one segment, plus the circuit
// parameters the deriver attaches afterwards.
type SegmentBlock struct {
	Segment string
	Block   netip.Prefix
	Degree  int
	Pinned  bool
	Circuit string
	Mgmt    bool
}

// Assignment is one row of the allocation table: a single interface with its
// host address and derived routing parameters.
type Assignment struct {
	Device  string
	Iface   string
	Segment string
	Addr    netip.Addr
	Bits    int
	Pinned  bool
	Circuit string
	Level   string
	Area    string
	Metric  int
}

func (a Assignment) CIDR() string {
	return a.Addr.String() + "/" + itoa(a.Bits)
}

type DevicePlan struct {
	Name  string
	Type  string
	Level string
	Area  string
	NET   string
}

// Plan is the finished allocation table. It is populated in one pass and
// read-only afterwards; the emitter, the exporters and the archive all
// consume it as-is.
type Plan struct {
	Lab     string
	Pool    netip.Prefix
	Area    string
	Blocks  []SegmentBlock
	Rows    []Assignment
	Devices []DevicePlan
}

func (p *Plan) BlockFor(segment string) (SegmentBlock, bool) {
	for _, b := range p.Blocks {
		if b.Segment == segment {
			return b, true
		}
	}
	return SegmentBlock{}, false
}

func (p *Plan) RowsFor(device string) []Assignment {
	var out []Assignment
	for _, r := range p.Rows {
		if r.Device == device {
			out = append(out, r)
		}
	}
	return out
}

func (p *Plan) RowFor(device, iface string) (Assignment, bool) {
	for _, r := range p.Rows {
		if r.Device == device && r.Iface == iface {
			return r, true
		}
	}
	return Assignment{}, false
}

// allocatePlan carves per-segment blocks out of the root pool and numbers
// every interface. Pinned blocks are reserved before the cursor walk so a
// generically advancing carve can never claim the space a pin needs.
func allocatePlan(topo *Topology, cfg Config) (*Plan, error) {
	pool := cfg.poolPrefix()
	plan := &Plan{Lab: topo.Name, Pool: pool, Area: cfg.Area}

	pins, err := resolvePins(topo, cfg, pool)
	if err != nil {
		return nil, err
	}

	var used []netip.Prefix
	pinnedBlocks := map[*Segment]netip.Prefix{}
	for _, seg := range topo.Segments {
		addrs := pins.bySegment[seg]
		if len(addrs) == 0 {
			continue
		}
		want, err := prefixForDegree(seg.Name, seg.Degree(), cfg.MaxBlock)
		if err != nil {
			return nil, err
		}
		block, err := pinnedBlockFor(seg.Name, addrs, want, cfg.MaxBlock, pool)
		if err != nil {
			return nil, err
		}
		if overlapsAny(block, used) {
			return nil, &PinConflictError{Detail: "segment " + seg.Name + " pinned block " + block.String() + " overlaps another pinned block"}
		}
		used = append(used, block)
		pinnedBlocks[seg] = block
	}

	cursor := prefixNetworkU32(pool)
	for _, seg := range topo.Segments {
		want, err := prefixForDegree(seg.Name, seg.Degree(), cfg.MaxBlock)
		if err != nil {
			return nil, err
		}
		block, pinned := pinnedBlocks[seg]
		if !pinned {
			block, cursor, err = carve(pool, cursor, want, used)
			if err != nil {
				return nil, &PoolExhaustionError{Segment: seg.Name, Pool: pool}
			}
			used = append(used, block)
		}
		rows, err := assignHosts(seg, block, pins.byIface)
		if err != nil {
			return nil, err
		}
		plan.Blocks = append(plan.Blocks, SegmentBlock{
			Segment: seg.Name,
			Block:   block,
			Degree:  seg.Degree(),
			Pinned:  pinned,
		})
		plan.Rows = append(plan.Rows, rows...)
	}
	return plan, nil
}

type resolvedPins struct {
	byIface   map[*Iface]netip.Addr
	bySegment map[*Segment][]netip.Addr
}

// resolvePins maps configured pins onto topology interfaces. Pins naming a
// device absent from this lab are ignored, which lets a shared config carry
// the standing snmp_manager pin.
func resolvePins(topo *Topology, cfg Config, pool netip.Prefix) (resolvedPins, error) {
	pins := resolvedPins{
		byIface:   map[*Iface]netip.Addr{},
		bySegment: map[*Segment][]netip.Addr{},
	}
	seen := map[netip.Addr]string{}
	for _, p := range cfg.Pins {
		d := topo.Device(p.Device)
		if d == nil {
			continue
		}
		if len(d.Ifaces) == 0 {
			return pins, &PinConflictError{Detail: p.Device + " has no interfaces to pin"}
		}
		var iface *Iface
		if p.Iface == "" {
			iface = d.Ifaces[0]
		} else {
			for _, candidate := range d.Ifaces {
				if candidate.Name() == p.Iface {
					iface = candidate
					break
				}
			}
			if iface == nil {
				return pins, &PinConflictError{Detail: p.Device + " has no interface " + p.Iface}
			}
		}
		addr := netip.MustParseAddr(p.Address)
		if !pool.Contains(addr) {
			return pins, &PinConflictError{Detail: p.Device + "/" + iface.Name() + " pin " + p.Address + " outside pool " + pool.String()}
		}
		if owner, dup := seen[addr]; dup {
			return pins, &PinConflictError{Detail: "address " + p.Address + " pinned to both " + owner + " and " + p.Device}
		}
		if _, dup := pins.byIface[iface]; dup {
			return pins, &PinConflictError{Detail: p.Device + "/" + iface.Name() + " pinned twice"}
		}
		seen[addr] = p.Device
		pins.byIface[iface] = addr
		pins.bySegment[iface.Segment] = append(pins.bySegment[iface.Segment], addr)
	}
	return pins, nil
}

// pinnedBlockFor fixes a segment's block around its pinned addresses: the
// aligned block at the sizer's prefix length, widened one bit at a time
// while any pin would land on the network or broadcast address.
func pinnedBlockFor(segment string, addrs []netip.Addr, want, maxBlock int, pool netip.Prefix) (netip.Prefix, error) {
	if maxBlock <= 0 {
		maxBlock = defaultMaxBlock
	}
	for bits := want; bits >= maxBlock; bits-- {
		block := netip.PrefixFrom(addrs[0], bits).Masked()
		network := prefixNetworkU32(block)
		broadcast := prefixBroadcastU32(block)
		ok := true
		for _, a := range addrs {
			v := ipv4ToU32(a)
			if !block.Contains(a) || v == network || v == broadcast {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		if !prefixWithin(pool, block) {
			return netip.Prefix{}, &PinConflictError{Detail: "segment " + segment + " pinned block " + block.String() + " does not fit pool " + pool.String()}
		}
		return block, nil
	}
	return netip.Prefix{}, &PinConflictError{Detail: "segment " + segment + ": no block up to /" + itoa(maxBlock) + " satisfies its pins"}
}

// carve advances the cursor to the next aligned block that does not touch
// any previously used prefix. The cursor only moves forward; pinned blocks
// sitting ahead of it are skipped over when reached.
func carve(pool netip.Prefix, cursor uint32, bits int, used []netip.Prefix) (netip.Prefix, uint32, error) {
	step := blockSize(bits)
	poolEnd := uint64(prefixBroadcastU32(pool))
	cand := alignUp32(cursor, step)
	for uint64(cand)+uint64(step)-1 <= poolEnd {
		prefix := netip.PrefixFrom(u32ToIPv4(cand), bits)
		if !overlapsAny(prefix, used) {
			return prefix, cand + step, nil
		}
		cand += step
	}
	return netip.Prefix{}, cursor, &PoolExhaustionError{Pool: pool}
}

// assignHosts numbers the segment's interfaces inside the carved block, in
// declaration order, skipping the network address, the broadcast address and
// any pinned address. Pinned interfaces receive exactly their pin.
func assignHosts(seg *Segment, block netip.Prefix, pins map[*Iface]netip.Addr) ([]Assignment, error) {
	network := prefixNetworkU32(block)
	broadcast := prefixBroadcastU32(block)

	taken := map[uint32]bool{}
	for _, m := range seg.Members {
		if addr, ok := pins[m]; ok {
			taken[ipv4ToU32(addr)] = true
		}
	}

	rows := make([]Assignment, 0, len(seg.Members))
	next := network + 1
	for _, m := range seg.Members {
		if addr, ok := pins[m]; ok {
			rows = append(rows, Assignment{
				Device:  m.Device.Name,
				Iface:   m.Name(),
				Segment: seg.Name,
				Addr:    addr,
				Bits:    block.Bits(),
				Pinned:  true,
			})
			continue
		}
		for taken[next] {
			next++
		}
		if next >= broadcast {
			return nil, &PoolExhaustionError{Segment: seg.Name, Pool: block}
		}
		rows = append(rows, Assignment{
			Device:  m.Device.Name,
			Iface:   m.Name(),
			Segment: seg.Name,
			Addr:    u32ToIPv4(next),
			Bits:    block.Bits(),
		})
		next++
	}
	return rows, nil
}
