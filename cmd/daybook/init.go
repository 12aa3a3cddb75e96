package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// defaultConfigYAML is the starter configuration written by `daybook init`.
var defaultConfigYAML = []byte(`# Daybook configuration

listen:
  # address: ""        # bind address, empty = all interfaces
  port: 8080

data_dir: data

# log_level: info      # trace, debug, info, warn, error

ai:
  provider: gemini     # gemini or openai
  # api_key: ${DAYBOOK_AI_KEY}   # generic key, used when no provider key is set
  # gemini_api_key: ""
  # openai_api_key: ""
  gemini_model: gemini-2.0-flash
  openai_model: gpt-4o-mini

mqtt:
  enabled: false
  # broker: mqtt://localhost:1883
  # username: ""
  # password: ""
  device_name: daybook
  publish_interval_sec: 60
`)

// runInit initializes a Daybook working directory. Existing files are
// never overwritten.
func runInit(w io.Writer, dir string) error {
	fmt.Fprintf(w, "Initializing Daybook workspace in %s\n", dir)

	dataDir := filepath.Join(dir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dataDir, err)
	}

	configPath := filepath.Join(dir, "config.yaml")
	if err := writeIfMissing(configPath, defaultConfigYAML); err != nil {
		return err
	}
	fmt.Fprintf(w, "  ✓ %s\n", configPath)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Edit config.yaml and add an AI API key to enable the assistant.")
	return nil
}

// writeIfMissing writes content to path only if the file does not already
// exist, so init never clobbers user customizations.
func writeIfMissing(path string, content []byte) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, content, 0o644)
}
