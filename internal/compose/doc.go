// Package compose turns visual assets plus alignment timings into a
// deterministic composition plan for the external renderer.
//
// The compositor budgets still-image time against the narration duration,
// keeps video clips at their measured length while carrying the signed
// difference forward as sync debt absorbed by the next still, and closes any
// residual gap by extending only the last visual.
package compose
