package main

import "fmt"

const (
	circuitP2P = "point-to-point"
	circuitLAN = "broadcast"

	level1    = "level-1"
	level2    = "level-2"
	levelBoth = "level-1-2"
)

// deriveRouting annotates the allocated plan with IS-IS circuit parameters:
// network type per interface, level and area per device, NET address per
// router. Purely a function of the table and the run configuration.
func deriveRouting(plan *Plan, topo *Topology, cfg Config) {
	circuits := map[string]string{}
	mgmt := map[string]bool{}
	for i := range plan.Blocks {
		b := &plan.Blocks[i]
		if b.Degree == 2 {
			b.Circuit = circuitP2P
		} else {
			b.Circuit = circuitLAN
		}
		b.Mgmt = managementSegment(topo, b.Segment)
		circuits[b.Segment] = b.Circuit
		mgmt[b.Segment] = b.Mgmt
	}

	levels := map[string]string{}
	areas := map[string]string{}
	for i, d := range topo.Devices {
		dp := DevicePlan{Name: d.Name, Type: d.Type}
		dp.Level = cfg.levelFor(d.Name)
		dp.Area = cfg.areaFor(d.Name)
		if d.Type == typeRouter {
			dp.NET = netAddress(dp.Area, i+1)
		}
		levels[d.Name] = dp.Level
		areas[d.Name] = dp.Area
		plan.Devices = append(plan.Devices, dp)
	}

	for i := range plan.Rows {
		r := &plan.Rows[i]
		r.Circuit = circuits[r.Segment]
		r.Level = levels[r.Device]
		r.Area = areas[r.Device]
		r.Metric = cfg.metricFor(r.Segment)
	}
}

// managementSegment reports whether the segment joins a monitoring manager
// to a router. Such segments carry SNMP traffic, not transit routing; the
// emitter leaves them out of IS-IS and relies on connected redistribution.
func managementSegment(topo *Topology, name string) bool {
	hasManager := false
	hasRouter := false
	for _, s := range topo.Segments {
		if s.Name != name {
			continue
		}
		for _, m := range s.Members {
			switch m.Device.Type {
			case typeManager:
				hasManager = true
			case typeRouter:
				hasRouter = true
			}
		}
	}
	return hasManager && hasRouter
}

// netAddress builds the IS-IS network entity title for a router: AFI 49
// (private), the area, a system ID derived from the device's declaration
// index, and the zero NSEL.
func netAddress(area string, index int) string {
	systemID := fmt.Sprintf("%04d.%04d.%04d", 0, 0, index)
	return "49." + area + "." + systemID + ".00"
}
