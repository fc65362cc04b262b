// Package speech synthesizes narration audio through an OpenAI-compatible
// text-to-speech endpoint.
package speech
