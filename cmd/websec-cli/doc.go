// Package main is the websec-cli entry point.
//
// Usage:
//
//	websec-cli token --encoding hex --length 64
//	echo -n 'secret' | websec-cli hash --algorithm argon2
//	websec-cli config validate /etc/websec/server.yaml
//	websec-cli storage backup --data-dir /var/lib/websec-server -f creds.bak
//	websec-cli --server https://auth.example.com health
package main
