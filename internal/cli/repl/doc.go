// Package repl runs websec-cli commands interactively.
//
// Each input line is split shell-style and run through a fresh cli.App,
// so flags never leak from one line to the next. Commands that read a
// password take it from the next input line, which is not recorded in
// history.
package repl
