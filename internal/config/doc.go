// Package config provides the configuration of a shotdiff run: the built-in
// defaults, the .shotdiff YAML file describing environments, pages and
// devices, and the SHOTDIFF_* environment overlay.
package config
