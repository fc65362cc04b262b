// Package textgen wraps an OpenAI-compatible chat completion API for the
// script work the pipeline needs: rewriting, translation, and illustration
// prompt drafting.
package textgen
