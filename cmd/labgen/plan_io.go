package main

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

const planSchemaVersion = "1"

type PlanBundle struct {
	SchemaVersion string            `json:"schema_version" yaml:"schema_version"`
	Lab           string            `json:"lab" yaml:"lab"`
	Pool          string            `json:"pool" yaml:"pool"`
	Area          string            `json:"area" yaml:"area"`
	Segments      []BundleSegment   `json:"segments" yaml:"segments"`
	Interfaces    []BundleInterface `json:"interfaces" yaml:"interfaces"`
}

type BundleSegment struct {
	Name    string `json:"name" yaml:"name"`
	Block   string `json:"block" yaml:"block"`
	Degree  int    `json:"degree" yaml:"degree"`
	Circuit string `json:"circuit" yaml:"circuit"`
	Pinned  bool   `json:"pinned" yaml:"pinned"`
	Mgmt    bool   `json:"mgmt" yaml:"mgmt"`
}

type BundleInterface struct {
	Device  string `json:"device" yaml:"device"`
	Iface   string `json:"iface" yaml:"iface"`
	Segment string `json:"segment" yaml:"segment"`
	Address string `json:"address" yaml:"address"`
	Prefix  int    `json:"prefix" yaml:"prefix"`
	Circuit string `json:"circuit" yaml:"circuit"`
	Level   string `json:"level" yaml:"level"`
	Area    string `json:"area" yaml:"area"`
	Metric  int    `json:"metric" yaml:"metric"`
	Pinned  bool   `json:"pinned" yaml:"pinned"`
}

func bundleFromPlan(plan *Plan) PlanBundle {
	b := PlanBundle{
		SchemaVersion: planSchemaVersion,
		Lab:           plan.Lab,
		Pool:          plan.Pool.String(),
		Area:          plan.Area,
	}
	for _, s := range plan.Blocks {
		b.Segments = append(b.Segments, BundleSegment{
			Name:    s.Segment,
			Block:   s.Block.String(),
			Degree:  s.Degree,
			Circuit: s.Circuit,
			Pinned:  s.Pinned,
			Mgmt:    s.Mgmt,
		})
	}
	for _, r := range plan.Rows {
		b.Interfaces = append(b.Interfaces, BundleInterface{
			Device:  r.Device,
			Iface:   r.Iface,
			Segment: r.Segment,
			Address: r.Addr.String(),
			Prefix:  r.Bits,
			Circuit: r.Circuit,
			Level:   r.Level,
			Area:    r.Area,
			Metric:  r.Metric,
			Pinned:  r.Pinned,
		})
	}
	return b
}

func writePlanYAML(w io.Writer, b PlanBundle) error {
	out, err := yaml.Marshal(b)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

func writePlanJSON(w io.Writer, b PlanBundle) error {
	out, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	if _, err := w.Write(out); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}

func writePlanCSV(w io.Writer, b PlanBundle) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"device", "iface", "segment", "address", "prefix", "circuit", "level", "area", "metric", "pinned"}); err != nil {
		return err
	}
	for _, r := range b.Interfaces {
		pinned := "0"
		if r.Pinned {
			pinned = "1"
		}
		if err := cw.Write([]string{
			r.Device, r.Iface, r.Segment, r.Address, itoa(r.Prefix),
			r.Circuit, r.Level, r.Area, itoa(r.Metric), pinned,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writePlanText(w io.Writer, b PlanBundle) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	io.WriteString(tw, "DEVICE\tIFACE\tSEGMENT\tADDRESS\tCIRCUIT\tLEVEL\tAREA\tMETRIC\n")
	for _, r := range b.Interfaces {
		line := strings.Join([]string{
			r.Device, r.Iface, r.Segment, r.Address + "/" + itoa(r.Prefix),
			r.Circuit, r.Level, r.Area, itoa(r.Metric),
		}, "\t")
		if r.Pinned {
			line += "\t(pinned)"
		}
		io.WriteString(tw, line+"\n")
	}
	return tw.Flush()
}

// planTableText is the canonical line form of a plan table: one line per
// interface plus one per segment block. Run checksums and run-to-run diffs
// both operate on this text, so its format must stay stable.
func planTableText(b PlanBundle) string {
	var sb strings.Builder
	for _, s := range b.Segments {
		sb.WriteString("segment " + s.Name + " " + s.Block + " " + s.Circuit + "\n")
	}
	for _, r := range b.Interfaces {
		sb.WriteString(r.Device + " " + r.Iface + " " + r.Segment + " " +
			r.Address + "/" + itoa(r.Prefix) + " " + r.Circuit + " " +
			r.Level + " " + r.Area + " " + itoa(r.Metric) + "\n")
	}
	return sb.String()
}
