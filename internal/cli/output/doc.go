// Package output renders websec-cli results as a table, JSON or YAML.
//
// Structs render as FIELD/VALUE tables, slices of structs as one row per
// element, and maps as KEY/VALUE tables sorted by key. Field names come
// from json tags; a `table:"-"` tag hides a field and `table:"wide"` shows
// it only in wide mode.
package output
