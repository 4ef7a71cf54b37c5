package presenters

// Embed colors. Replies to the bot are matched against the first three to find
// the track a message was about.
const (
	ColorSongAdded      = 0x98fb98
	ColorAutoNowPlaying = 0x7fffd4
	ColorNowPlaying     = 0x48d1cc
	ColorRelatedSetup   = 0xffc0cb
	ColorQueue          = 0x87cefa
)

// IsTrackColor reports whether color belongs to an embed describing a single track.
func IsTrackColor(color int) bool {
	switch color {
	case ColorSongAdded, ColorAutoNowPlaying, ColorNowPlaying:
		return true
	}
	return false
}
