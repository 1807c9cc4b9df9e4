package layout

// State of the convergent build.
// ENUM(running, converged, exhausted)
type State int
