package config

import (
	"flag"
	"fmt"
	"strings"
)

const HelpMessage = `
room-compass - live location sharing rooms

Usage:
  compass [--mode=room-service] [--config-path=config.yaml]
  compass --help

Options:
  --mode          service to run (room-service)
  --config-path   path to the yaml config, values can be overridden by environment
                  variables named after the yaml path, e.g. DATABASE_HOST
  --help          show this message
`

func PrintHelp() {
	if HelpMessage != "" {
		fmt.Printf("%s", HelpMessage)
	} else {
		flag.Usage()
	}
}

// PrintConfig prints the effective configuration with secrets masked.
func PrintConfig(cfg *Config) {
	var b strings.Builder

	fmt.Fprintf(&b, "mode=%s log_level=%s http_port=%s\n", cfg.Mode, cfg.LogLevel, cfg.HTTP.Port)
	fmt.Fprintf(&b, "database=%s@%s:%s/%s password=%s\n", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database, mask(cfg.Database.Password))
	fmt.Fprintf(&b, "rabbitmq enabled=%t %s:%s\n", cfg.RabbitMQ.Enabled, cfg.RabbitMQ.Host, cfg.RabbitMQ.Port)
	fmt.Fprintf(&b, "redis enabled=%t addr=%s\n", cfg.Redis.Enabled, cfg.Redis.Addr)
	fmt.Fprintf(&b, "tracker threshold=%.1fm interval=%s debounce=%s/%s\n", cfg.Tracker.Threshold, cfg.Tracker.Interval, cfg.Tracker.DebounceWait, cfg.Tracker.DebounceMaxWait)
	fmt.Fprintf(&b, "compass smoothing=%.2f events_per_second=%.0f\n", cfg.Compass.SmoothingWeight, cfg.Compass.MaxEventsPerSecond)
	fmt.Fprintf(&b, "cloudinary enabled=%t jwt_secret=%s\n", cfg.Cloudinary.Enabled(), mask(cfg.Auth.JWTSecret))

	fmt.Print(b.String())
}

func mask(s string) string {
	if s == "" {
		return "<empty>"
	}
	return "***"
}
