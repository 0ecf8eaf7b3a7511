// Package config provides configuration structures and utilities for piculet.
// It defines the options of a scrape run, the .piculet configuration file
// with per-spec settings, and the environment overrides read at startup.
package config
