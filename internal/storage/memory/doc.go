// Package memory provides in-memory credential and session stores built
// on sharded concurrent maps.
//
// Both stores keep clones of what they are given and hand out clones, so
// callers never share state with the store. SessionStore runs a sweep
// loop that drops expired sessions; Get also treats an expired session
// as gone even before the sweeper has reached it.
package memory
