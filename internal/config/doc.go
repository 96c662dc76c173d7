// Package config provides configuration structures and utilities for
// artistscan. It defines the crawl options, API credentials, the optional
// YAML configuration file and the XDG directories used for state.
package config
