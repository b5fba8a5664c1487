package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func devicePlanFor(t *testing.T, plan *Plan, name string) DevicePlan {
	t.Helper()
	for _, d := range plan.Devices {
		if d.Name == name {
			return d
		}
	}
	t.Fatalf("no device plan for %s", name)
	return DevicePlan{}
}

func TestRenderStartupRouter(t *testing.T) {
	topo, plan, cfg := allocateDemoLab(t)
	body, err := renderStartup(devicePlanFor(t, plan, "r1"), topo, plan, cfg)
	if err != nil {
		t.Fatalf("render r1: %v", err)
	}

	wantLines := []string{
		"ip addr add 192.168.0.1/30 dev eth0",
		"ip addr add 192.168.0.5/30 dev eth1",
		"ip addr add 192.168.1.1/28 dev eth2",
		"sysctl -w net.ipv4.ip_forward=1",
		"router isis MAIN",
		" net 49.0001.0000.0000.0001.00",
		" is-type level-2-only",
		" redistribute ipv4 connected level-2",
		"interface eth0",
		" isis metric 10",
		" isis network point-to-point",
		"echo \"nameserver 1.1.1.1\" > /etc/resolv.conf",
	}
	for _, want := range wantLines {
		if !strings.Contains(body, want) {
			t.Fatalf("r1 startup missing %q:\n%s", want, body)
		}
	}

	// eth2 is the management interface: it gets an address and NAT but
	// stays out of IS-IS.
	if strings.Contains(body, "interface eth2") {
		t.Fatalf("management interface eth2 must not join IS-IS:\n%s", body)
	}
	if !strings.Contains(body, "iptables -t nat -A POSTROUTING -o eth2 -j MASQUERADE") {
		t.Fatalf("r1 startup missing NAT on eth2:\n%s", body)
	}
}

func TestRenderStartupHost(t *testing.T) {
	topo, plan, cfg := allocateDemoLab(t)
	body, err := renderStartup(devicePlanFor(t, plan, "pc1"), topo, plan, cfg)
	if err != nil {
		t.Fatalf("render pc1: %v", err)
	}

	wantLines := []string{
		"ip addr add 192.168.1.2/28 dev eth0",
		"ip route add default via 192.168.1.1 metric 100",
		"echo \"nameserver 1.1.1.1\" > /etc/resolv.conf",
	}
	for _, want := range wantLines {
		if !strings.Contains(body, want) {
			t.Fatalf("pc1 startup missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, "router isis") {
		t.Fatalf("pc1 startup must not configure IS-IS:\n%s", body)
	}
}

func TestWriteStartupFiles(t *testing.T) {
	topo, plan, cfg := allocateDemoLab(t)
	dir := t.TempDir()
	written, err := writeStartupFiles(dir, topo, plan, cfg)
	if err != nil {
		t.Fatalf("write startup files: %v", err)
	}
	if len(written) != len(plan.Devices) {
		t.Fatalf("wrote %d files, want %d", len(written), len(plan.Devices))
	}
	for _, d := range plan.Devices {
		path := filepath.Join(dir, d.Name+".startup")
		body, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		text := string(body)
		if !strings.HasPrefix(text, "#!/bin/bash\n") {
			t.Fatalf("%s missing shebang", path)
		}
		if !strings.Contains(text, "# checksum: sha256:") {
			t.Fatalf("%s missing checksum header", path)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat %s: %v", path, err)
		}
		if info.Mode().Perm()&0o100 == 0 {
			t.Fatalf("%s is not executable", path)
		}
	}
}

func TestWriteStartupFilesDeterministic(t *testing.T) {
	topo, plan, cfg := allocateDemoLab(t)

	render := func() string {
		dir := t.TempDir()
		if _, err := writeStartupFiles(dir, topo, plan, cfg); err != nil {
			t.Fatalf("write startup files: %v", err)
		}
		body, err := os.ReadFile(filepath.Join(dir, "r1.startup"))
		if err != nil {
			t.Fatalf("read r1.startup: %v", err)
		}
		return string(body)
	}
	if render() != render() {
		t.Fatalf("repeated renders of r1.startup differ")
	}
}
