// Package config loads, normalizes, and validates the mashup service
// configuration.
//
// Configuration is TOML. Load resolves the file (explicit path, then the XDG
// config location, then ./mashup.toml), decodes it over Default(), expands
// paths, applies environment fallbacks for mail credentials, and validates
// every section. A sample file is embedded for `mashup config init`.
package config
