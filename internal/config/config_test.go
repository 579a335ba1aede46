package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	cfg := Default()
	if cfg.WSPort != 9000 || cfg.UDPPort != 9001 {
		t.Fatalf("ports=%d/%d", cfg.WSPort, cfg.UDPPort)
	}
	if cfg.NAT.Enabled {
		t.Fatalf("nat must be opt-in")
	}
	if cfg.NAT.Lease != DefaultNATLease {
		t.Fatalf("lease=%s", cfg.NAT.Lease)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if cfg.WSAddr() != ":9000" || cfg.UDPAddr() != ":9001" {
		t.Fatalf("addrs=%s %s", cfg.WSAddr(), cfg.UDPAddr())
	}
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "holodash.yaml")
	data := []byte(`
ws_port: 9100
bind: 127.0.0.1
log_file: /var/log/holodash.log
probe_paths:
  - /opt/temp-sensor/temp_sensor
nat:
  enabled: true
  lease: 30m
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WSPort != 9100 || cfg.UDPPort != DefaultUDPPort {
		t.Fatalf("ports=%d/%d", cfg.WSPort, cfg.UDPPort)
	}
	if cfg.WSAddr() != "127.0.0.1:9100" {
		t.Fatalf("ws addr=%s", cfg.WSAddr())
	}
	if len(cfg.ProbePaths) != 1 || cfg.ProbePaths[0] != "/opt/temp-sensor/temp_sensor" {
		t.Fatalf("probe_paths=%v", cfg.ProbePaths)
	}
	if !cfg.NAT.Enabled || cfg.NAT.Lease != 30*time.Minute {
		t.Fatalf("nat=%+v", cfg.NAT)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	cfg := Default()
	err := ApplyEnv(&cfg, envMap(map[string]string{
		"HOLODASH_WS_PORT":  "8080",
		"HOLODASH_UDP_PORT": "8081",
		"HOLODASH_BIND":     "0.0.0.0",
		"HOLODASH_NAT":      "true",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.WSPort != 8080 || cfg.UDPPort != 8081 || cfg.Bind != "0.0.0.0" || !cfg.NAT.Enabled {
		t.Fatalf("cfg=%+v", cfg)
	}

	if err := ApplyEnv(&cfg, envMap(map[string]string{"HOLODASH_WS_PORT": "nine"})); err == nil {
		t.Fatalf("expected error for non-numeric port")
	}
}

func TestValidateRejects(t *testing.T) {
	t.Parallel()

	cases := map[string]func(*Config){
		"port range":  func(c *Config) { c.UDPPort = 70000 },
		"bind":        func(c *Config) { c.Bind = "not-an-ip" },
		"empty probe": func(c *Config) { c.ProbePaths = []string{""} },
		"short lease": func(c *Config) { c.NAT.Lease = time.Second },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		if err := Validate(cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
