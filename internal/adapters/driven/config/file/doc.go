// Package file provides the TOML settings store behind `cmtap settings`.
//
// Settings live in ~/.cmtap/config.toml. Keys are addressed with dots
// ("retry.max_attempts") and written as nested TOML tables.
package file
