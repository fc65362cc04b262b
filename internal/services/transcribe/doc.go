// Package transcribe runs a local whisper-style CLI to turn narration audio
// into timestamped captions.
package transcribe
