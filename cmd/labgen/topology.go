package main

import (
	"bufio"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Device types detected from the container image name.
const (
	typeRouter  = "router"
	typePC      = "pc"
	typeManager = "manager"
	typeGeneric = "generic"
)

type Device struct {
	Name   string
	Image  string
	Type   string
	Ifaces []*Iface
}

type Iface struct {
	Device  *Device
	Index   int // ethN
	Segment *Segment
}

func (i *Iface) Name() string {
	return "eth" + itoa(i.Index)
}

// Segment is a maximal set of interfaces sharing one broadcast or
// point-to-point medium. Members keep lab.conf declaration order; that order
// drives host numbering, so it is never re-sorted.
type Segment struct {
	Name    string
	Members []*Iface
}

func (s *Segment) Degree() int {
	return len(s.Members)
}

type Topology struct {
	Name     string
	Devices  []*Device
	Segments []*Segment
}

func (t *Topology) Device(name string) *Device {
	for _, d := range t.Devices {
		if d.Name == name {
			return d
		}
	}
	return nil
}

func (t *Topology) Routers() []*Device {
	var out []*Device
	for _, d := range t.Devices {
		if d.Type == typeRouter {
			out = append(out, d)
		}
	}
	return out
}

var labLineRe = regexp.MustCompile(`^([^[]+)\[([^]]+)\]$`)

type typeMatcher struct {
	router  *regexp.Regexp
	pc      *regexp.Regexp
	manager *regexp.Regexp
}

func (m typeMatcher) detect(image string) string {
	switch {
	case m.router.MatchString(image):
		return typeRouter
	case m.manager.MatchString(image):
		return typeManager
	case m.pc.MatchString(image):
		return typePC
	default:
		return typeGeneric
	}
}

// parseLab reads a Kathara lab.conf and builds the topology model. Devices
// and segments are kept in first-declaration order so repeated runs walk the
// graph identically.
func parseLab(path string, m typeMatcher) (*Topology, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	topo := &Topology{Name: labName(path)}
	segments := map[string]*Segment{}
	devices := map[string]*Device{}

	device := func(name string) *Device {
		if d, ok := devices[name]; ok {
			return d
		}
		d := &Device{Name: name, Type: typeGeneric}
		devices[name] = d
		topo.Devices = append(topo.Devices, d)
		return d
	}

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "LAB_") {
			continue
		}
		eq := strings.Index(line, "=")
		if eq < 0 {
			continue
		}
		left := strings.TrimSpace(line[:eq])
		right := strings.Trim(strings.TrimSpace(line[eq+1:]), `"'`)

		match := labLineRe.FindStringSubmatch(left)
		if match == nil {
			continue
		}
		name, property := match[1], match[2]
		d := device(name)

		if property == "image" {
			d.Image = right
			d.Type = m.detect(right)
			continue
		}
		index, err := strconv.Atoi(property)
		if err != nil {
			// Non-numeric properties other than image carry no
			// topology information.
			continue
		}
		if right == "" {
			return nil, &StructuralError{Detail: name + "[" + property + "] attaches to no segment (line " + itoa(lineNo) + ")"}
		}
		for _, existing := range d.Ifaces {
			if existing.Index == index {
				return nil, &StructuralError{Detail: name + " declares eth" + itoa(index) + " twice"}
			}
		}
		seg, ok := segments[right]
		if !ok {
			seg = &Segment{Name: right}
			segments[right] = seg
			topo.Segments = append(topo.Segments, seg)
		}
		iface := &Iface{Device: d, Index: index, Segment: seg}
		d.Ifaces = append(d.Ifaces, iface)
		seg.Members = append(seg.Members, iface)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for _, d := range topo.Devices {
		sort.SliceStable(d.Ifaces, func(i, j int) bool {
			return d.Ifaces[i].Index < d.Ifaces[j].Index
		})
	}
	if err := validateTopology(topo); err != nil {
		return nil, err
	}
	return topo, nil
}

func validateTopology(topo *Topology) error {
	if len(topo.Devices) == 0 {
		return &StructuralError{Detail: "no devices declared"}
	}
	for _, s := range topo.Segments {
		if len(s.Members) == 0 {
			return &StructuralError{Detail: "segment " + s.Name + " has no interfaces"}
		}
	}
	for _, d := range topo.Devices {
		for _, iface := range d.Ifaces {
			if iface.Segment == nil {
				return &StructuralError{Detail: d.Name + "/" + iface.Name() + " attached to no segment"}
			}
		}
	}
	return nil
}

func labName(path string) string {
	path = strings.TrimSuffix(path, "/lab.conf")
	path = strings.TrimSuffix(path, "\\lab.conf")
	parts := strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' })
	if len(parts) == 0 {
		return "lab"
	}
	name := parts[len(parts)-1]
	if name == "lab.conf" || name == "." || name == "" {
		return "lab"
	}
	return name
}
