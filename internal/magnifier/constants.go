// Package magnifier runs the draggable colour-simulation lens: each cycle
// captures the screen under the lens, magnifies it, applies a dichromacy
// filter and paints the result.
package magnifier

// Magnifier configuration constants
const (
	// Lens edge length in viewport pixels
	DefaultLensSize = 200

	// The source region is 1/Magnification of the lens on each axis
	Magnification = 2

	// Where a new lens appears, in viewport coordinates
	DefaultOriginX = 20
	DefaultOriginY = 20

	// Consecutive grab failures before the loop gives up
	DefaultFailureThreshold = 5
)
