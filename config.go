package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"
)

type Config struct {
	Port            int
	StaticRoot      string
	RoutesFile      string
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxBodyLength   int
	Debug           bool
	LogJSON         bool
}

// parseFlags parses and validates the command line (without the program
// name). Usage and flag errors are written to output.
func parseFlags(args []string, output io.Writer) (Config, error) {
	var c Config
	fs := flag.NewFlagSet("http4j", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.IntVar(&c.Port, "port", 8080, "port to listen on (1-65535)")
	fs.StringVar(&c.StaticRoot, "static-root", "", "directory to serve static files from")
	fs.StringVar(&c.RoutesFile, "routes", "", "JSON route table")
	fs.DurationVar(&c.IdleTimeout, "idle-timeout", defaultIdleTimeout, "keep-alive idle timeout")
	fs.DurationVar(&c.ShutdownTimeout, "shutdown-timeout", 5*time.Second, "grace period for open connections on shutdown")
	fs.IntVar(&c.MaxBodyLength, "max-body", maxBodyLength, "largest accepted request body in bytes")
	fs.BoolVar(&c.Debug, "debug", false, "enable debug logging")
	fs.BoolVar(&c.LogJSON, "log-json", false, "log JSON lines instead of console output")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d. Must be between 1 and 65535", c.Port)
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("invalid idle timeout: %s", c.IdleTimeout)
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("invalid shutdown timeout: %s", c.ShutdownTimeout)
	}
	if c.MaxBodyLength < 0 {
		return fmt.Errorf("invalid max body length: %d", c.MaxBodyLength)
	}
	if c.StaticRoot != "" {
		info, err := os.Stat(c.StaticRoot)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("invalid static root: %s", c.StaticRoot)
		}
	}
	return nil
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
