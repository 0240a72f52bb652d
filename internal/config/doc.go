// Package config loads daemon configuration from a JSON or TOML file and the
// environment, and assembles the wallet, its cache store and event sinks.
package config
