// Package render drives the external ffmpeg process that materializes a
// composition plan into the output video.
//
// The wire contract with the renderer is a command-line argument list plus a
// filter-graph description file; progress comes back as periodic structured
// text lines carrying time=/out_time= tokens.
package render
