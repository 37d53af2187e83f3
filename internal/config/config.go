package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Inventory lists the destinations tunnelctl knows about and how to invoke
// the ssh client for them.
type Inventory struct {
	Client ClientConfig `toml:"client"`
	Hosts  []HostConfig `toml:"hosts"`
}

// ClientConfig selects the external ssh executable and options passed to
// every tunnel before the destination.
type ClientConfig struct {
	Path    string   `toml:"path"`
	Options []string `toml:"options"`
}

// HostConfig describes one destination. Daemon and Match are paired: a host
// entry either talks to the login shell or runs a daemon whose replies are
// framed by the match pattern.
type HostConfig struct {
	Name     string   `toml:"name"`
	Hostname string   `toml:"hostname"`
	Options  []string `toml:"options"`
	Daemon   []string `toml:"daemon"`
	Match    string   `toml:"match"`
}

func LoadInventory(path string) (Inventory, error) {
	var inv Inventory
	if err := loadToml(path, &inv); err != nil {
		return Inventory{}, err
	}
	if inv.Client.Path == "" {
		inv.Client.Path = "ssh"
	}
	for i := range inv.Hosts {
		if inv.Hosts[i].Name == "" {
			inv.Hosts[i].Name = inv.Hosts[i].Hostname
		}
	}
	if err := ValidateInventory(inv); err != nil {
		return Inventory{}, err
	}
	return inv, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateInventory(inv Inventory) error {
	if strings.TrimSpace(inv.Client.Path) == "" {
		return fmt.Errorf("inventory missing client path")
	}
	seen := make(map[string]bool, len(inv.Hosts))
	for i, host := range inv.Hosts {
		if err := ValidateHostEntry(host); err != nil {
			return fmt.Errorf("hosts[%d] invalid: %w", i, err)
		}
		if seen[host.Name] {
			return fmt.Errorf("hosts[%d] invalid: duplicate name %q", i, host.Name)
		}
		seen[host.Name] = true
	}
	return nil
}

func ValidateHostEntry(host HostConfig) error {
	if strings.TrimSpace(host.Hostname) == "" {
		return fmt.Errorf("hostname is required")
	}
	if (len(host.Daemon) == 0) != (host.Match == "") {
		return fmt.Errorf("daemon and match must be given together")
	}
	return nil
}

// FindHost resolves a host entry by its name, falling back to the hostname.
func (inv Inventory) FindHost(name string) (HostConfig, bool) {
	for _, host := range inv.Hosts {
		if host.Name == name || host.Hostname == name {
			return host, true
		}
	}
	return HostConfig{}, false
}
