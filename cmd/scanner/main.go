// Package main provides the entry point for the arbitrage scanner CLI.
//
// The scanner fetches product pages concurrently through a headless render
// backend, with rate limiting, retries, circuit breaking and fingerprint
// rotation.
//
// Usage:
//
//	scanner serve
//	scanner scan --file urls.txt
//
// See --help for all available options.
package main

func main() {
	Execute()
}
