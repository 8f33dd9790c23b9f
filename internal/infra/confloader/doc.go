// Package confloader loads layered configuration with koanf and watches
// configuration files for changes with fsnotify.
//
// Priority (highest to lowest):
//
//  1. Overrides passed to LoadMap (command-line flags)
//  2. Environment variables (WEBSEC_ prefix)
//  3. The YAML configuration file
//  4. Defaults already present in the target struct
//
// Nested keys are separated by a double underscore in environment
// variable names, so single underscores survive inside key names:
// WEBSEC_HTTP__TRUST_PROXY=true sets http.trust_proxy.
package confloader
