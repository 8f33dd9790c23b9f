// Package storage defines the credential and session stores used by the
// authentication service, and the Badger-backed credential store.
//
// Implementations:
//
//   - BadgerCredentialStore (this package): durable credentials on disk
//   - memory: credentials and sessions in sharded concurrent maps
//   - redisstore: sessions shared between server instances
//
// Stores hand out clones; callers may modify what they get back.
package storage
