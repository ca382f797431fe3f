// Package config holds the scan policy and runtime options for exposcan.
// Values start from NewConfig defaults, are overlaid by an optional YAML
// policy file and then by command-line flags, and are validated once before
// a run starts.
package config
