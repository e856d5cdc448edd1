// Package file keeps settings and prompt overrides on disk: the TOML
// config store and the YAML prompt store.
package file
