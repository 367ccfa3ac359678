package camera

import "github.com/Carmen-Shannon/oxy-terrain/common"

// CameraController drives a camera's Placement from user input.
// Input handlers may be called from the window's event goroutine while Update runs
// on the tick goroutine, so implementations guard their state with a mutex.
type CameraController interface {
	// Attach binds the controller to the placement it moves and derives the
	// controller's orientation from the placement's current position and target.
	//
	// Parameters:
	//   - p: the placement to drive
	Attach(p Placement)

	// Update advances movement by dt seconds and writes the result to the placement.
	//
	// Parameters:
	//   - dt: elapsed time since the previous update, in seconds
	Update(dt float32)

	// KeyDown records that key is held.
	KeyDown(key common.Key)

	// KeyUp records that key was released.
	KeyUp(key common.Key)

	// MouseDown records a button press at the cursor position (x, y) in pixels.
	MouseDown(button common.MouseButton, x, y float32)

	// MouseUp records a button release at the cursor position (x, y) in pixels.
	MouseUp(button common.MouseButton, x, y float32)

	// MouseMove reports the absolute cursor position in pixels.
	MouseMove(x, y float32)

	// PointerMove reports a relative motion while the pointer is locked.
	PointerMove(dx, dy float32)

	// PointerLock reports that the pointer was locked or released.
	PointerLock(locked bool)

	// Scroll reports a vertical scroll offset.
	Scroll(dy float32)
}
