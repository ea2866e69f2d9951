// Package config loads and validates Pool Core configuration.
//
// Configuration comes from a YAML file with environment variable overrides
// (POOLCORE_* pattern). Defaults are applied first, then the file, then the
// environment.
//
// The pool section carries control defaults (thresholds, afterrun minutes,
// weekly windows). These seed the settings points in the point store on
// first start; after that the points are authoritative.
package config
