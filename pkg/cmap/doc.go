// Package cmap provides a sharded, string-keyed concurrent map.
//
// Keys are spread over a power-of-two number of shards by maphash, each
// guarded by its own RWMutex, so readers of one session never wait on
// writers of another. Range holds one shard lock at a time and so sees a
// per-shard, not a global, snapshot.
//
// Usage:
//
//	m := cmap.New[*domain.Session]()
//	m.Set(sess.ID, sess)
//	sess, ok := m.Get(id)
package cmap
