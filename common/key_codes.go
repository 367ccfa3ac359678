package common

// Key identifies a keyboard key. Values match GLFW key codes, which use ASCII for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
type Key int

const (
	KeyW         Key = 87  // W key (ASCII)
	KeyA         Key = 65  // A key (ASCII)
	KeyS         Key = 83  // S key (ASCII)
	KeyD         Key = 68  // D key (ASCII)
	KeyQ         Key = 81  // Q key (ASCII)
	KeyE         Key = 69  // E key (ASCII)
	KeyR         Key = 82  // R key (ASCII)
	KeySpace     Key = 32  // Spacebar (ASCII)
	KeyMinus     Key = 45  // - key (ASCII)
	KeyEqual     Key = 61  // = key (ASCII)
	KeyEsc       Key = 256 // Escape key (GLFW)
	KeyBackspace Key = 259 // Backspace key (GLFW)
	KeyTab       Key = 258 // Tab key (GLFW)

	KeyLeftShift  Key = 340 // Left Shift (GLFW)
	KeyRightShift Key = 344 // Right Shift (GLFW)
)

// MouseButton identifies a mouse button. Values match GLFW mouse button codes.
type MouseButton int

const (
	MouseButtonLeft   MouseButton = 0
	MouseButtonRight  MouseButton = 1
	MouseButtonMiddle MouseButton = 2
)
