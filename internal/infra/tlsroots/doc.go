// Package tlsroots loads TLS material for websec-server.
//
//   - roots.go: CA pools for outbound TLS (the rediss:// session store)
//   - keypair.go: the serving certificate, reloaded when the files change
package tlsroots
