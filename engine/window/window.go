package window

import (
	"fmt"
	"runtime"

	"github.com/Carmen-Shannon/oxy-terrain/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// GraphicsAPI selects how the window's drawing surface is created.
type GraphicsAPI int

const (
	// GraphicsAPIWebGPU creates the window without a client API; the renderer builds a
	// WebGPU surface from SurfaceDescriptor.
	GraphicsAPIWebGPU GraphicsAPI = iota

	// GraphicsAPIOpenGL creates the window with an OpenGL 4.1 core context.
	GraphicsAPIOpenGL
)

// Window provides platform windowing and input event handling.
// Wraps platform-specific window implementations with a common interface.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the window is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetScrollCallback sets the callback for mouse scroll wheel events.
	//
	// Parameters:
	//   - callback: function receiving scroll delta (positive = up/zoom in, negative = down/zoom out)
	SetScrollCallback(callback func(delta float32))

	// SetKeyDownCallback sets the callback for key press and repeat events.
	//
	// Parameters:
	//   - callback: function receiving the key
	SetKeyDownCallback(callback func(key common.Key))

	// SetKeyUpCallback sets the callback for key release events.
	//
	// Parameters:
	//   - callback: function receiving the key
	SetKeyUpCallback(callback func(key common.Key))

	// SetMouseDownCallback sets the callback for mouse button presses.
	//
	// Parameters:
	//   - callback: function receiving the button and the cursor position in pixels
	SetMouseDownCallback(callback func(button common.MouseButton, x, y float32))

	// SetMouseUpCallback sets the callback for mouse button releases.
	//
	// Parameters:
	//   - callback: function receiving the button and the cursor position in pixels
	SetMouseUpCallback(callback func(button common.MouseButton, x, y float32))

	// SetMouseMoveCallback sets the callback for cursor movement while the pointer is free.
	//
	// Parameters:
	//   - callback: function receiving the cursor position in pixels
	SetMouseMoveCallback(callback func(x, y float32))

	// SetPointerMoveCallback sets the callback for relative motion while the pointer is locked.
	//
	// Parameters:
	//   - callback: function receiving the motion since the previous event in pixels
	SetPointerMoveCallback(callback func(dx, dy float32))

	// SetPointerLockCallback sets the callback for pointer lock changes.
	//
	// Parameters:
	//   - callback: function receiving the new lock state
	SetPointerLockCallback(callback func(locked bool))

	// SetPointerLock hides and captures the cursor, or releases it. The right mouse button
	// toggles the lock and Escape releases it.
	SetPointerLock(locked bool)

	// PointerLocked reports whether the cursor is captured.
	PointerLocked() bool

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// MakeContextCurrent binds the window's OpenGL context to the calling thread.
	// It does nothing for a GraphicsAPIWebGPU window.
	MakeContextCurrent()

	// SwapBuffers presents the OpenGL back buffer.
	// It does nothing for a GraphicsAPIWebGPU window.
	SwapBuffers()

	// GraphicsAPI returns the API the window was created for.
	GraphicsAPI() GraphicsAPI

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// ProcessMessages runs the window message loop.
	// Blocks until the window is closed. Calls OnUpdate callback each iteration.
	ProcessMessages()

	// Width returns the current window client area width in pixels.
	//
	// Returns:
	//   - int: width in pixels
	Width() int

	// Height returns the current window client area height in pixels.
	//
	// Returns:
	//   - int: height in pixels
	Height() int
}

// engineWindow is the implementation of the Window interface.
// Holds window configuration, GLFW state, and event callbacks.
type engineWindow struct {
	// title is the window title displayed in the title bar.
	title string

	// maxWidth is the maximum allowed window width during resize.
	maxWidth int

	// maxHeight is the maximum allowed window height during resize.
	maxHeight int

	// minWidth is the minimum allowed window width during resize.
	minWidth int

	// minHeight is the minimum allowed window height during resize.
	minHeight int

	// width is the current window client area width in pixels.
	width int

	// height is the current window client area height in pixels.
	height int

	// api selects the client API hints used when the window is created.
	api GraphicsAPI

	// swapInterval is passed to glfw.SwapInterval for OpenGL windows. 1 waits for vblank.
	swapInterval int

	// pointerLocked is true while the cursor is captured.
	pointerLocked bool

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	// onUpdate is called each iteration of the message loop (if set).
	onUpdate func()

	// onResize is called when the window is resized.
	onResize func(width, height int)

	// onScroll is called for mouse wheel events.
	// Positive delta = scroll up (zoom in), negative = scroll down (zoom out).
	onScroll func(delta float32)

	onKeyDown func(key common.Key)
	onKeyUp   func(key common.Key)

	onMouseDown func(button common.MouseButton, x, y float32)
	onMouseUp   func(button common.MouseButton, x, y float32)

	// onMouseMove receives absolute positions while the pointer is free.
	onMouseMove func(x, y float32)

	// onPointerMove receives relative motion while the pointer is locked.
	onPointerMove func(dx, dy float32)

	onPointerLock func(locked bool)
}

var _ Window = &engineWindow{}

// NewWindow creates a new Window with the specified options.
// Applies default values first, then each option in order.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the configured window
//   - error: an error if GLFW or the window cannot be initialized
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		title:        "Default Window Title",
		maxWidth:     1600,
		maxHeight:    1200,
		minWidth:     600,
		minHeight:    200,
		width:        1280,
		height:       720,
		swapInterval: 1,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		return nil, fmt.Errorf("failed to create platform window: %w", err)
	}
	return w, nil
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(key common.Key)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetKeyUpCallback(callback func(key common.Key)) {
	w.onKeyUp = callback
}

func (w *engineWindow) SetMouseDownCallback(callback func(button common.MouseButton, x, y float32)) {
	w.onMouseDown = callback
}

func (w *engineWindow) SetMouseUpCallback(callback func(button common.MouseButton, x, y float32)) {
	w.onMouseUp = callback
}

func (w *engineWindow) SetMouseMoveCallback(callback func(x, y float32)) {
	w.onMouseMove = callback
}

func (w *engineWindow) SetPointerMoveCallback(callback func(dx, dy float32)) {
	w.onPointerMove = callback
}

func (w *engineWindow) SetPointerLockCallback(callback func(locked bool)) {
	w.onPointerLock = callback
}

func (w *engineWindow) SetPointerLock(locked bool) {
	if w.pointerLocked == locked {
		return
	}
	w.pointerLocked = locked
	platformSetPointerLock(w, locked)
	if w.onPointerLock != nil {
		w.onPointerLock(locked)
	}
}

func (w *engineWindow) PointerLocked() bool {
	return w.pointerLocked
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) MakeContextCurrent() {
	if w.api == GraphicsAPIOpenGL {
		platformMakeContextCurrent(w)
	}
}

func (w *engineWindow) SwapBuffers() {
	if w.api == GraphicsAPIOpenGL {
		platformSwapBuffers(w)
	}
}

func (w *engineWindow) GraphicsAPI() GraphicsAPI {
	return w.api
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if succ := platformProcessMessages(w); !succ {
			break
		}

		if w.onUpdate != nil {
			w.onUpdate()
		}

		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}
