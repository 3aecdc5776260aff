/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// fileValues holds the raw YAML config document. Keys mirror the env
// variable names without the HUGINN_ prefix, lowercased.
type fileValues map[string]any

func loadFile(path string) (fileValues, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	values := fileValues{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	return values, nil
}

func (f fileValues) str(key, def string) string {
	if v, ok := f[key].(string); ok && v != "" {
		return v
	}
	return def
}

func (f fileValues) num(key string, def int) int {
	switch v := f[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}

func (f fileValues) boolean(key string, def bool) bool {
	if v, ok := f[key].(bool); ok {
		return v
	}
	return def
}

func (f fileValues) float(key string, def float64) float64 {
	switch v := f[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}
