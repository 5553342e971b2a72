// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	applog "analyzer/internal/log"
)

// DeviceSession is the persisted device selection, written on device change
// and on clean shutdown so the next run can reopen the same input.
type DeviceSession struct {
	LastDeviceID   int    `yaml:"last_device_id"`
	LastDeviceName string `yaml:"last_device_name"`
	AutoSelect     bool   `yaml:"auto_select"`
}

// DefaultDeviceSession returns the state used when no session file exists.
func DefaultDeviceSession() DeviceSession {
	return DeviceSession{
		LastDeviceID:   DefaultDeviceID,
		LastDeviceName: "",
		AutoSelect:     true,
	}
}

// LoadDeviceSession reads the persisted device selection. A missing or
// corrupt file is never fatal: it logs and returns defaults, per the rule
// that configuration failures must not stop the analyzer.
func LoadDeviceSession(path string) DeviceSession {
	session := DefaultDeviceSession()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			applog.Warnf("Config: Unreadable device session %q, using defaults: %v", path, err)
		}
		return session
	}
	if err := yaml.Unmarshal(data, &session); err != nil {
		applog.Warnf("Config: Corrupt device session %q, using defaults: %v", path, err)
		return DefaultDeviceSession()
	}
	return session
}

// SaveDeviceSession writes the device selection, creating parent directories
// as needed.
func SaveDeviceSession(path string, session DeviceSession) error {
	data, err := yaml.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal device session: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create session directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write device session: %w", err)
	}
	return nil
}
