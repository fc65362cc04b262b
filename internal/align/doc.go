// Package align maps ordered text segments onto caption time spans.
//
// The engine anchors each segment into the caption stream with a monotonic
// cursor (exact substring first, then longest-common-substring extrapolation
// with a similarity threshold) and interpolates time for segments that never
// match. Character positions map linearly to time within each caption span.
package align
