// Package audiosource turns URLs into playable tracks.
//
// Every supported site has an AudioSource implementation that knows how to read
// track metadata and how to open a stream. Sites are scraped or queried directly
// where possible, with yt-dlp as the fallback when the direct route breaks.
// Metadata can be exported and fed back in as prefetched data, which is how
// cached and backed up tracks are rebuilt without touching the network.
package audiosource
