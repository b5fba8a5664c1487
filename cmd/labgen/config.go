package main

import (
	"errors"
	"net/netip"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

type Pin struct {
	Device  string `yaml:"device"`
	Iface   string `yaml:"iface,omitempty"` // empty means first declared interface
	Address string `yaml:"address"`
}

type Config struct {
	Pool     string `yaml:"pool"`
	MaxBlock int    `yaml:"max_block"`

	Area    string `yaml:"area"`
	Process string `yaml:"process"`
	Metric  int    `yaml:"metric"`

	Level1  []string          `yaml:"level1,omitempty"`
	Level12 []string          `yaml:"level1_2,omitempty"`
	Areas   map[string]string `yaml:"areas,omitempty"`
	Metrics map[string]int    `yaml:"metrics,omitempty"` // per-segment override

	Pins []Pin `yaml:"pins,omitempty"`

	DNSServer       string `yaml:"dns_server"`
	RouterPatterns  string `yaml:"router_patterns"`
	PCPatterns      string `yaml:"pc_patterns"`
	ManagerPatterns string `yaml:"manager_patterns"`
}

func defaultConfig() Config {
	return Config{
		Pool:            "192.168.0.0/16",
		MaxBlock:        defaultMaxBlock,
		Area:            "0001",
		Process:         "MAIN",
		Metric:          10,
		DNSServer:       "1.1.1.1",
		RouterPatterns:  "frr|quagga|vyos|router",
		PCPatterns:      "alpine|ubuntu|debian|pc|client|workstation",
		ManagerPatterns: "zabbix|snmp|manager|monitor|nms",
		Pins: []Pin{
			{Device: "snmp_manager", Address: "192.168.1.7"},
		},
	}
}

// loadConfig reads the YAML run configuration, overlaying defaults. An empty
// path returns the defaults untouched.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(body, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if _, err := netip.ParsePrefix(c.Pool); err != nil {
		return errors.New("config: invalid pool CIDR " + c.Pool)
	}
	if c.MaxBlock < 8 || c.MaxBlock > 30 {
		return errors.New("config: max_block must be between 8 and 30")
	}
	if c.Metric <= 0 {
		return errors.New("config: metric must be positive")
	}
	for segment, metric := range c.Metrics {
		if metric <= 0 {
			return errors.New("config: metric override for segment " + segment + " must be positive")
		}
	}
	for _, p := range c.Pins {
		if strings.TrimSpace(p.Device) == "" {
			return errors.New("config: pin without device")
		}
		if _, err := netip.ParseAddr(p.Address); err != nil {
			return errors.New("config: pin " + p.Device + " has invalid address " + p.Address)
		}
	}
	return nil
}

func (c Config) poolPrefix() netip.Prefix {
	return netip.MustParsePrefix(c.Pool).Masked()
}

func (c Config) matcher() (typeMatcher, error) {
	var m typeMatcher
	var err error
	if m.router, err = regexp.Compile("(?i)" + c.RouterPatterns); err != nil {
		return m, err
	}
	if m.pc, err = regexp.Compile("(?i)" + c.PCPatterns); err != nil {
		return m, err
	}
	if m.manager, err = regexp.Compile("(?i)" + c.ManagerPatterns); err != nil {
		return m, err
	}
	return m, nil
}

func (c Config) levelFor(device string) string {
	for _, name := range c.Level12 {
		if name == device {
			return levelBoth
		}
	}
	for _, name := range c.Level1 {
		if name == device {
			return level1
		}
	}
	return level2
}

func (c Config) metricFor(segment string) int {
	if metric, ok := c.Metrics[segment]; ok && metric > 0 {
		return metric
	}
	return c.Metric
}

func (c Config) areaFor(device string) string {
	if area, ok := c.Areas[device]; ok && strings.TrimSpace(area) != "" {
		return area
	}
	return c.Area
}

func mustEnv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}
