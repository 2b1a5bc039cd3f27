// Package config defines the study-store settings and helpers to load, validate
// and save them in YAML format.
//
// Values from the file can be overridden by STUDY_STORE_* environment variables,
// and command-line flags override both.
package config
