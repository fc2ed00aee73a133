package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlagsDefaults(t *testing.T) {
	c, err := parseFlags(nil, new(bytes.Buffer))
	require.NoError(t, err)
	assert.Equal(t, 8080, c.Port)
	assert.Equal(t, ":8080", c.Addr())
	assert.Equal(t, 10*time.Second, c.IdleTimeout)
	assert.Empty(t, c.StaticRoot)
	assert.Empty(t, c.RoutesFile)
	assert.False(t, c.Debug)
}

func TestParseFlags(t *testing.T) {
	root := t.TempDir()
	c, err := parseFlags([]string{
		"-port", "9000", "-static-root", root, "-routes", "r.json",
		"-idle-timeout", "2s", "-debug", "-log-json", "-max-body", "1024",
	}, new(bytes.Buffer))
	require.NoError(t, err)
	assert.Equal(t, 9000, c.Port)
	assert.Equal(t, root, c.StaticRoot)
	assert.Equal(t, "r.json", c.RoutesFile)
	assert.Equal(t, 2*time.Second, c.IdleTimeout)
	assert.True(t, c.Debug)
	assert.True(t, c.LogJSON)
	assert.Equal(t, 1024, c.MaxBodyLength)
}

func TestParseFlagsErrors(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	tests := map[string][]string{
		"port zero":         {"-port", "0"},
		"port too big":      {"-port", "65536"},
		"not a number":      {"-port", "http"},
		"missing root":      {"-static-root", filepath.Join(t.TempDir(), "missing")},
		"root is a file":    {"-static-root", file},
		"zero idle timeout": {"-idle-timeout", "0s"},
		"stray argument":    {"extra"},
		"unknown flag":      {"-verbose"},
	}
	for name, args := range tests {
		_, err := parseFlags(args, new(bytes.Buffer))
		assert.Error(t, err, name)
	}

	_, err := parseFlags([]string{"-h"}, new(bytes.Buffer))
	assert.ErrorIs(t, err, flag.ErrHelp)
}

func TestNewLoggerLevels(t *testing.T) {
	buf := new(bytes.Buffer)
	log := newLogger(buf, false, true)
	log.Debug().Msg("hidden")
	log.Info().Str("k", "v").Msg("shown")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["message"])
	assert.Equal(t, "v", line["k"])
	assert.Equal(t, "info", line["level"])
	assert.Contains(t, line, "time")

	buf.Reset()
	debugLog := newLogger(buf, true, false)
	debugLog.Debug().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestRunStopsOnCancel(t *testing.T) {
	routes := filepath.Join(t.TempDir(), "routes.json")
	require.NoError(t, os.WriteFile(routes,
		[]byte(`{"routes": [{"method": "GET", "path": "/", "response": {"status": 200, "body": "ok"}}]}`), 0o644))

	port := freePort(t)
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, Config{
			Port:            port,
			RoutesFile:      routes,
			StaticRoot:      root,
			IdleTimeout:     time.Second,
			ShutdownTimeout: time.Second,
		}, newLogger(new(bytes.Buffer), false, true))
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestRunFailsOnBadRoutes(t *testing.T) {
	err := run(context.Background(), Config{
		Port:        freePort(t),
		RoutesFile:  filepath.Join(t.TempDir(), "missing.json"),
		IdleTimeout: time.Second,
	}, newLogger(new(bytes.Buffer), false, true))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
