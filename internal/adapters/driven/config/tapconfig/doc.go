// Package tapconfig resolves the tap's runtime configuration.
//
// Values are layered, lowest priority first:
//
//  1. Built-in defaults
//  2. Persisted settings (~/.cmtap/config.toml)
//  3. The --config file (JSON or YAML, ${VAR} expanded)
//  4. CMTAP_<KEY> environment variables, e.g. CMTAP_RETRY_MAX_ATTEMPTS
package tapconfig
