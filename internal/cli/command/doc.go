// Package command defines the websec-cli commands.
//
// Offline commands mint tokens and salts, hash and verify passwords with
// the same code the server uses, check server configuration files, and
// back up a stopped server's credential store. Remote commands talk to a
// running server through internal/cli/connection. The shell command runs
// any of them interactively.
package command
