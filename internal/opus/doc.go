// Package opus turns arbitrary audio into Opus frames for Discord voice playback.
//
// Frames travel between the encoder and the streamer in a minimal binary format:
// concatenated length-prefixed frames ([uint16 LE length][opus bytes]).
// No headers, no metadata.
//
// Encode transcodes a url or a reader to Opus via FFmpeg and produces
// length-prefixed frames. FrameReader reads them back, and StreamToVoice sends
// them to a voice connection, holding back while its Gate is paused.
package opus
