// Package viz renders analyses in the terminal.
//
// Responses are drawn with asciigraph and framed with lipgloss. [Model] is a
// Bubble Tea program that pages through the step, impulse and ramp responses
// of one analysis next to its step metrics and a Braille pole map.
//
// # Key Bindings
//
//	Tab/→  - Next response
//	⇧Tab/← - Previous response
//	1 2 3  - Step, impulse, ramp
//	P      - Toggle pole map
//	T      - Cycle color themes
//	Q      - Quit
package viz
