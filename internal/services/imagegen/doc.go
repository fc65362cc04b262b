// Package imagegen generates illustration stills and short motion clips
// through an OpenAI-compatible media API. Still generation is a single
// synchronous call; clip generation is a submit, poll, fetch cycle that the
// client hides behind one blocking method.
package imagegen
