// Package config defines the settings shared by safety-monitor and
// alert-server and provides helpers to load, validate and save them in YAML.
//
// Load starts from Default and overlays the file, so every section may be
// omitted. Validate fills in the remaining defaults.
package config
