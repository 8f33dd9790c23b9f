// Package config holds websec-cli settings.
//
// Settings come from ~/.websec/cli.yaml, then WEBSEC_CLI_* environment
// variables, then command-line flags, each overriding the previous.
package config
