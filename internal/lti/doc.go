// Package lti models proper, single-input single-output, continuous-time
// transfer functions and realizes them as state-space systems.
//
// A [TransferFunction] is validated once at construction ([New]) and never
// mutated afterwards. [Realize] turns it into a controller-companion
// [StateSpace] whose A matrix has the denominator roots as eigenvalues and
// whose C, D reproduce the numerator through polynomial long division.
package lti
