// Package main is the websec-server entry point.
//
// websec-server serves signup, login, logout and session endpoints behind
// HTTPS redirection, response header, IP allow list, client binding and
// CSRF filters.
//
// Usage:
//
//	websec-server [-config /etc/websec/server.yaml]
//
// Configuration comes from the optional YAML file and WEBSEC_* variables
// (WEBSEC_SESSION__TTL=15m). Edits to the file take effect without a
// restart for response headers, the IP allow list and the log level, and
// certificate files are re-read when they change. Everything else needs a
// restart.
package main
