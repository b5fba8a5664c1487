package main

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"os"
	"path/filepath"
	"text/template"
)

//go:embed templates/*.tmpl
var startupFS embed.FS

var startupTemplates = template.Must(template.ParseFS(startupFS, "templates/*.tmpl"))

type startupIface struct {
	Name    string
	Segment string
	CIDR    string
	Circuit string
	Metric  int
	P2P     bool
	Mgmt    bool
}

type startupContext struct {
	Device   string
	Image    string
	Process  string
	NET      string
	IsType   string
	Redist   string
	Ifaces   []startupIface
	Gateway  string
	DNS      string
	NATIface string
}

// renderStartup produces the body of one device's startup script. Routers
// get FRR IS-IS bring-up; everything else gets addressing, a default route
// via the first reachable router and a resolver.
func renderStartup(d DevicePlan, topo *Topology, plan *Plan, cfg Config) (string, error) {
	ctx := startupContext{
		Device:  d.Name,
		Process: cfg.Process,
		NET:     d.NET,
		IsType:  frrIsType(d.Level),
		Redist:  frrRedistLevel(d.Level),
		DNS:     cfg.DNSServer,
	}
	dev := topo.Device(d.Name)
	if dev != nil {
		ctx.Image = dev.Image
	}
	for _, row := range plan.RowsFor(d.Name) {
		block, _ := plan.BlockFor(row.Segment)
		iface := startupIface{
			Name:    row.Iface,
			Segment: row.Segment,
			CIDR:    row.CIDR(),
			Circuit: row.Circuit,
			Metric:  row.Metric,
			P2P:     row.Circuit == circuitP2P,
			Mgmt:    block.Mgmt,
		}
		ctx.Ifaces = append(ctx.Ifaces, iface)
	}

	name := "host.tmpl"
	if d.Type == typeRouter {
		name = "router.tmpl"
		ctx.NATIface = externalIface(dev, topo)
	} else {
		ctx.Gateway = gatewayFor(dev, topo, plan)
	}

	var buf bytes.Buffer
	if err := startupTemplates.ExecuteTemplate(&buf, name, ctx); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// writeStartupFiles renders and writes <device>.startup for every device,
// each prefixed with a checksum header. Nothing is written unless every
// render succeeds first.
func writeStartupFiles(dir string, topo *Topology, plan *Plan, cfg Config) ([]string, error) {
	type rendered struct {
		path string
		body string
	}
	var files []rendered
	for _, d := range plan.Devices {
		body, err := renderStartup(d, topo, plan, cfg)
		if err != nil {
			return nil, err
		}
		full := "#!/bin/bash\n" + startupHeader(plan.Lab, d.Name, body) + body
		files = append(files, rendered{
			path: filepath.Join(dir, d.Name+".startup"),
			body: full,
		})
	}
	var written []string
	for _, f := range files {
		if err := os.WriteFile(f.path, []byte(f.body), 0o755); err != nil {
			return written, err
		}
		written = append(written, f.path)
	}
	return written, nil
}

func startupHeader(lab, device, body string) string {
	return "# " + device + ".startup for lab " + lab + "\n" +
		"# generated by labgen, do not edit\n" +
		"# checksum: sha256:" + checksumSHA256(body) + "\n\n"
}

func checksumSHA256(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func frrIsType(level string) string {
	switch level {
	case level1:
		return "level-1"
	case levelBoth:
		return "level-1-2"
	default:
		return "level-2-only"
	}
}

func frrRedistLevel(level string) string {
	switch level {
	case level1:
		return "level-1"
	case levelBoth:
		return "level-1-2"
	default:
		return "level-2"
	}
}

// externalIface picks the router interface used for NAT: the first one whose
// segment also attaches a non-router device.
func externalIface(dev *Device, topo *Topology) string {
	if dev == nil {
		return ""
	}
	for _, iface := range dev.Ifaces {
		for _, m := range iface.Segment.Members {
			if m.Device.Type != typeRouter {
				return iface.Name()
			}
		}
	}
	return ""
}

// gatewayFor finds the default gateway for a non-router device: the address
// of the first router sharing any of its segments.
func gatewayFor(dev *Device, topo *Topology, plan *Plan) string {
	if dev == nil {
		return ""
	}
	for _, iface := range dev.Ifaces {
		for _, m := range iface.Segment.Members {
			if m.Device.Type != typeRouter {
				continue
			}
			if row, ok := plan.RowFor(m.Device.Name, m.Name()); ok {
				return row.Addr.String()
			}
		}
	}
	return ""
}
