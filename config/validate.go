package config

import (
	"fmt"
	"net"
	"strings"
)

// Validate checks the fields the daemon cannot start without.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.ListenAddress); err != nil {
		return fmt.Errorf("config: ListenAddress %q: %w", c.ListenAddress, err)
	}
	if _, err := c.AdminAddress(); err != nil {
		return err
	}
	if _, err := c.MintAuthorityAddress(); err != nil {
		return err
	}
	if c.RPC.RateLimitPerSecond < 0 {
		return fmt.Errorf("config: rpc.RateLimitPerSecond must not be negative")
	}
	if c.RPC.RateLimitBurst < 0 {
		return fmt.Errorf("config: rpc.RateLimitBurst must not be negative")
	}
	for _, proxy := range c.RPC.TrustedProxies {
		if err := validateProxy(proxy); err != nil {
			return err
		}
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0 {
		return fmt.Errorf("config: logging limits must not be negative")
	}
	return nil
}

func validateProxy(entry string) error {
	trimmed := strings.TrimSpace(entry)
	if strings.Contains(trimmed, "/") {
		if _, _, err := net.ParseCIDR(trimmed); err != nil {
			return fmt.Errorf("config: rpc.TrustedProxies %q: %w", entry, err)
		}
		return nil
	}
	if net.ParseIP(trimmed) == nil {
		return fmt.Errorf("config: rpc.TrustedProxies %q is not an IP or CIDR", entry)
	}
	return nil
}
