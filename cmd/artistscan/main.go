// Package main provides the entry point for the artistscan CLI.
//
// artistscan crawls the Spotify Web API outward from genre seeds and
// browse categories and writes one CSV row per unique artist.
//
// Usage:
//
//	artistscan crawl -n 1000
//	artistscan crawl --fresh -o out/artists.csv
//
// See --help for all available options.
package main

// main is the entry point for artistscan.
func main() {
	Execute()
}
