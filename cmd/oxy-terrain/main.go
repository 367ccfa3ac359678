// Command oxy-terrain opens a window onto a lit, textured terrain scene that can be flown
// through with a first-person camera.
//
// Usage:
//
//	oxy-terrain [-config app.yaml]
//
// W/A/S/D move, Space and Left Shift rise and sink, the right mouse button captures the
// pointer for mouse-look and Escape releases it. = and - step the tint control.
package main

import (
	"flag"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-terrain/common"
	"github.com/Carmen-Shannon/oxy-terrain/engine"
	"github.com/Carmen-Shannon/oxy-terrain/engine/camera"
	"github.com/Carmen-Shannon/oxy-terrain/engine/config"
	"github.com/Carmen-Shannon/oxy-terrain/engine/control"
	"github.com/Carmen-Shannon/oxy-terrain/engine/profiler"
	"github.com/Carmen-Shannon/oxy-terrain/engine/renderer"
	"github.com/Carmen-Shannon/oxy-terrain/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-terrain/engine/scene"
	"github.com/Carmen-Shannon/oxy-terrain/engine/texture"
	"github.com/Carmen-Shannon/oxy-terrain/engine/window"
	"github.com/Carmen-Shannon/oxy-terrain/shaders"
)

func main() {
	configPath := flag.String("config", "", "path to a .yaml, .yml or .toml config file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("config: %v", err)
		}
	}

	level, _ := cfg.Log.SlogLevel()
	common.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

func run(cfg config.Config) error {
	api, backend := window.GraphicsAPIWebGPU, renderer.BackendTypeWGPU
	if cfg.Renderer.Backend == config.BackendGL {
		api, backend = window.GraphicsAPIOpenGL, renderer.BackendTypeGL
	}

	win, err := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithWidth(cfg.Window.Width),
		window.WithHeight(cfg.Window.Height),
		window.WithGraphicsAPI(api),
		window.WithVSync(cfg.Window.VSync),
	)
	if err != nil {
		return err
	}

	presentMode := renderer.PresentModeVSync
	if !cfg.Window.VSync {
		presentMode = renderer.PresentModeUncapped
	}
	msaa := renderer.MSAA4x
	if cfg.Renderer.MSAA == 1 {
		msaa = renderer.MSAAOff
	}
	cc := cfg.Renderer.ClearColor
	r, err := renderer.NewRenderer(backend, win,
		renderer.WithPresentMode(presentMode),
		renderer.WithMSAA(msaa),
		renderer.WithClearColor(cc[0], cc[1], cc[2], cc[3]),
		renderer.WithTextureManager(texture.NewManager(texture.WithDecodeWorkers(2))),
	)
	if err != nil {
		return fmt.Errorf("renderer: %w", err)
	}
	defer r.Release()

	controls, err := newControls(cfg)
	if err != nil {
		return err
	}

	var programs fs.FS = shaders.FS
	if cfg.Renderer.ShaderDir != "" {
		programs = os.DirFS(cfg.Renderer.ShaderDir)
	}
	aspect := float32(win.Width()) / float32(max(win.Height(), 1))
	s, err := buildScene(r, cfg, controls, programs, aspect)
	if err != nil {
		return err
	}
	wireInput(win, s, controls)

	eng := engine.NewEngine(
		engine.WithWindow(win),
		engine.WithScene(0, s),
		engine.WithTickRate(cfg.Renderer.TickRate),
		engine.WithRenderFrameLimit(cfg.Renderer.FrameLimit),
		engine.WithProfiling(cfg.Renderer.Profiling),
		engine.WithProfiler(profiler.NewProfiler(profiler.WithUpdateInterval(time.Second))),
	)

	if cfg.Renderer.ShaderDir != "" {
		reloads := make(chan string, 8)
		w, err := shader.WatchDir(cfg.Renderer.ShaderDir, 100*time.Millisecond, func(program string) {
			select {
			case reloads <- program:
			default:
			}
		})
		if err != nil {
			return err
		}
		defer w.Close()

		// Programs relink on the render thread, which owns the graphics context.
		eng.SetRenderCallback(func(float32) {
			for {
				select {
				case name := <-reloads:
					reloadProgram(s, programs, name)
				default:
					return
				}
			}
		})
	}

	eng.Run()
	return nil
}

// reloadProgram relinks a changed program. A program that fails to load or link keeps
// the previous version.
func reloadProgram(s scene.Scene, programs fs.FS, name string) {
	src, err := loadProgram(programs, ".", shaders.ChunkDir, name)
	if err != nil {
		common.Logger().Error("shader reload failed", "program", name, "err", err)
		return
	}
	if err := s.AddShaderProgram(name, src); err != nil {
		common.Logger().Error("shader relink failed", "program", name, "err", err)
		return
	}
	common.Logger().Info("shader reloaded", "program", name)
}

// wireInput forwards window input to the active camera's controller and maps = and - to
// the tint control.
func wireInput(win window.Window, s scene.Scene, controls control.Manager) {
	active := func() camera.CameraController {
		_, cam := s.ActiveCamera()
		if cam == nil {
			return nil
		}
		return cam.Controller()
	}

	win.SetKeyDownCallback(func(key common.Key) {
		switch key {
		case common.KeyEqual:
			stepTint(controls, 1)
		case common.KeyMinus:
			stepTint(controls, -1)
		}
		if c := active(); c != nil {
			c.KeyDown(key)
		}
	})
	win.SetKeyUpCallback(func(key common.Key) {
		if c := active(); c != nil {
			c.KeyUp(key)
		}
	})
	win.SetMouseDownCallback(func(button common.MouseButton, x, y float32) {
		if c := active(); c != nil {
			c.MouseDown(button, x, y)
		}
	})
	win.SetMouseUpCallback(func(button common.MouseButton, x, y float32) {
		if c := active(); c != nil {
			c.MouseUp(button, x, y)
		}
	})
	win.SetMouseMoveCallback(func(x, y float32) {
		if c := active(); c != nil {
			c.MouseMove(x, y)
		}
	})
	win.SetPointerMoveCallback(func(dx, dy float32) {
		if c := active(); c != nil {
			c.PointerMove(dx, dy)
		}
	})
	win.SetPointerLockCallback(func(locked bool) {
		if c := active(); c != nil {
			c.PointerLock(locked)
		}
	})
	win.SetScrollCallback(func(delta float32) {
		if c := active(); c != nil {
			c.Scroll(delta)
		}
	})
}

func stepTint(controls control.Manager, n int) {
	v, err := controls.Step(tintControl, n)
	if err != nil {
		return
	}
	common.Logger().Debug("control changed", "control", tintControl, "value", v)
}
