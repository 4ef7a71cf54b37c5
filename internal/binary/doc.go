// Package binary downloads, caches and runs command-line tools published as
// GitHub release assets.
//
// A Manager owns one executable (yt-dlp in practice). The executable is fetched
// the first time it is needed and refreshed when the latest release tag changes,
// at most once per update interval. A failed update check never removes a
// binary that is already installed.
package binary
