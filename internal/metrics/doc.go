// Package metrics derives time-domain performance figures from sampled step
// responses.
//
// All detection is sample-based: a threshold is reached at the smallest grid
// index whose amplitude satisfies it and no interpolation is performed. The
// steady-state value is the last sample of the trace, so a quantity that is
// only reached at that last sample is reported as absent.
package metrics
