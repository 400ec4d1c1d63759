// softpoly - software triangle rasterizer demo
// Spin a glTF model (or the built-in cube) in the terminal, or render a
// single frame to PNG.
//
// Controls:
//
//	Mouse drag  - Rotate model (yaw/pitch)
//	Scroll      - Zoom in/out
//	W/S         - Pitch up/down
//	A/D         - Yaw left/right
//	Q/E         - Roll left/right
//	Space       - Apply random impulse
//	R           - Reset rotation
//	T           - Toggle texture on/off
//	X           - Toggle wireframe mode
//	M           - Toggle mirrored drawing
//	G           - Toggle ground grid and axes
//	L           - Light positioning mode (move mouse, click to set, Esc to cancel)
//	?           - Toggle HUD overlay
//	+/-         - Adjust zoom
//	Esc         - Quit (or cancel light mode)
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/harmonica"
	uv "github.com/charmbracelet/ultraviolet"

	"github.com/taigrr/softpoly/pkg/math3d"
	"github.com/taigrr/softpoly/pkg/render"
)

var (
	texturePath = flag.String("texture", "", "Path to texture image (PNG/JPG/BMP/WebP)")
	maxTexture  = flag.Int("maxtex", 256, "Scale textures down to at most this many texels per side (0 keeps size)")
	targetFPS   = flag.Int("fps", 60, "Target FPS")
	bgColor     = flag.String("bg", "30,30,40", "Background color (R,G,B)")
	workers     = flag.Int("workers", 0, "Render workers (0 = one per CPU, 1 = draw without a pool)")
	accelName   = flag.String("accel", "wide", "Inner loops: scalar or wide")
	formatName  = flag.String("format", "rgba", "Framebuffer format: rgba or paletted")
	fog         = flag.Float64("fog", 0, "Distance fog visibility (0 disables)")
	arenaSize   = flag.Int("arena", 0, "Clip-column arena entries (0 = default)")
	pngPath     = flag.String("png", "", "Render one frame to this PNG file and exit")
	pngSize     = flag.String("size", "640x360", "Image size for -png (WxH)")
	verbose     = flag.Bool("v", false, "Verbose logging to stderr")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "softpoly - software triangle rasterizer demo\n\n")
		fmt.Fprintf(os.Stderr, "Usage: softpoly [options] [model.glb|model.gltf|cube]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nControls:\n")
		fmt.Fprintf(os.Stderr, "  Mouse drag  - Rotate model\n")
		fmt.Fprintf(os.Stderr, "  Scroll      - Zoom in/out\n")
		fmt.Fprintf(os.Stderr, "  W/S/A/D     - Pitch and yaw\n")
		fmt.Fprintf(os.Stderr, "  Q/E         - Roll left/right\n")
		fmt.Fprintf(os.Stderr, "  Space       - Random spin\n")
		fmt.Fprintf(os.Stderr, "  R           - Reset view\n")
		fmt.Fprintf(os.Stderr, "  T           - Toggle texture\n")
		fmt.Fprintf(os.Stderr, "  X           - Toggle wireframe\n")
		fmt.Fprintf(os.Stderr, "  M           - Toggle mirror\n")
		fmt.Fprintf(os.Stderr, "  L           - Position light (mouse to aim, click to set)\n")
		fmt.Fprintf(os.Stderr, "  G           - Toggle ground grid and axes\n")
		fmt.Fprintf(os.Stderr, "  ?           - Toggle HUD overlay\n")
		fmt.Fprintf(os.Stderr, "  Esc         - Quit\n")
	}
	flag.Parse()

	modelPath := builtinCube
	if flag.NArg() > 0 {
		modelPath = flag.Arg(0)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	render.SetLogger(logger)

	if err := run(modelPath, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// RotationAxis tracks position and velocity for one rotation axis with spring decay
type RotationAxis struct {
	Position  float64
	Velocity  float64
	velSpring harmonica.Spring
	velAccel  float64
}

// NewRotationAxis creates an axis whose velocity settles without overshoot.
func NewRotationAxis(fps int) RotationAxis {
	return RotationAxis{
		velSpring: harmonica.NewSpring(harmonica.FPS(fps), 4.0, 1.0),
	}
}

// Update applies velocity to position and springs velocity toward 0.
func (a *RotationAxis) Update() {
	a.Position += a.Velocity
	a.Velocity, a.velAccel = a.velSpring.Update(a.Velocity, a.velAccel, 0)
}

// RotationState holds rotation with harmonica spring physics
type RotationState struct {
	Pitch, Yaw, Roll RotationAxis
	fps              int
}

func NewRotationState(fps int) *RotationState {
	r := &RotationState{fps: fps}
	r.Reset()
	return r
}

func (r *RotationState) Update() {
	r.Pitch.Update()
	r.Yaw.Update()
	r.Roll.Update()
}

func (r *RotationState) ApplyImpulse(pitch, yaw, roll float64) {
	r.Pitch.Velocity += pitch
	r.Yaw.Velocity += yaw
	r.Roll.Velocity += roll
}

func (r *RotationState) Reset() {
	r.Pitch = NewRotationAxis(r.fps)
	r.Yaw = NewRotationAxis(r.fps)
	r.Roll = NewRotationAxis(r.fps)
}

// Transform returns the model rotation.
func (r *RotationState) Transform() math3d.Mat4 {
	return math3d.RotateX(float32(r.Pitch.Position)).
		Mul(math3d.RotateY(float32(r.Yaw.Position))).
		Mul(math3d.RotateZ(float32(r.Roll.Position)))
}

// RenderMode controls how the mesh is drawn
type RenderMode int

const (
	RenderModeTextured  RenderMode = iota // Textured, lit per face
	RenderModeFlat                        // Flat colour, lit per face
	RenderModeWireframe                   // Edges only
)

// ViewState holds all view-related settings
type ViewState struct {
	TextureEnabled bool
	RenderMode     RenderMode
	LightMode      bool
	LightDir       math3d.Vec3
	PendingLight   math3d.Vec3 // light direction while positioning
	ShowHUD        bool
	ShowGuides     bool
}

// NewViewState creates default view state
func NewViewState() *ViewState {
	return &ViewState{
		TextureEnabled: true,
		RenderMode:     RenderModeTextured,
		LightDir:       math3d.V3(0.5, 1, 0.8).Normalize(),
	}
}

// ScreenToLightDir maps a terminal cell to a light direction on the
// hemisphere facing the viewer.
func (v *ViewState) ScreenToLightDir(screenX, screenY, width, height int) math3d.Vec3 {
	nx := (float64(screenX)/float64(width))*2 - 1
	ny := (float64(screenY)/float64(height))*2 - 1

	lenSq := nx*nx + ny*ny
	if lenSq > 1 {
		l := math.Sqrt(lenSq)
		nx /= l
		ny /= l
		lenSq = 1
	}
	nz := math.Sqrt(1 - lenSq)
	return math3d.V3(float32(nx), float32(-ny), float32(nz)).Normalize()
}

// HUD renders an overlay with model and renderer info
type HUD struct {
	filename  string
	polyCount int
	fps       float64
	fpsFrames int
	fpsTime   time.Time
}

func NewHUD(filename string, polyCount int) *HUD {
	return &HUD{
		filename:  filename,
		polyCount: polyCount,
		fpsTime:   time.Now(),
	}
}

// UpdateFPS updates the FPS counter (call once per frame)
func (h *HUD) UpdateFPS() {
	h.fpsFrames++
	elapsed := time.Since(h.fpsTime)
	if elapsed >= time.Second {
		h.fps = float64(h.fpsFrames) / elapsed.Seconds()
		h.fpsFrames = 0
		h.fpsTime = time.Now()
	}
}

// Render draws the HUD directly to the terminal, after the frame.
func (h *HUD) Render(width, height int, view *ViewState, r *render.Renderer) {
	const (
		reset     = "\x1b[0m"
		bold      = "\x1b[1m"
		dim       = "\x1b[2m"
		bgBlack   = "\x1b[40m"
		fgWhite   = "\x1b[97m"
		fgGreen   = "\x1b[92m"
		fgYellow  = "\x1b[93m"
		fgCyan    = "\x1b[96m"
		clearLine = "\x1b[2K"
	)
	moveTo := func(row, col int) string {
		return fmt.Sprintf("\x1b[%d;%dH", row, col)
	}

	// Always clear the HUD rows so toggling off works.
	fmt.Print(moveTo(1, 1) + clearLine)
	fmt.Print(moveTo(height, 1) + clearLine)

	if view.LightMode {
		msg := fmt.Sprintf("%s%s%s ◉ LIGHT MODE - Move mouse to position, click to set, Esc to cancel %s",
			bgBlack, bold, fgYellow, reset)
		fmt.Print(moveTo(height, max((width-60)/2, 1)) + msg)
		return
	}
	if !view.ShowHUD {
		return
	}

	fmt.Printf("%s%s%s %.0f FPS %d×%s %s", moveTo(1, 1), bgBlack, fgGreen, h.fps, r.Workers(), r.Context().Accel(), reset)

	title := fmt.Sprintf("%s%s%s %s %s", bold, bgBlack, fgWhite, h.filename, reset)
	fmt.Print(moveTo(1, max((width-len(h.filename)-2)/2, 1)) + title)

	polys := fmt.Sprintf("%s%s%s %d polys %s", bgBlack, fgCyan, bold, h.polyCount, reset)
	fmt.Print(moveTo(1, max(width-12, 1)) + polys)

	checkTex := "[ ]"
	if view.TextureEnabled && view.RenderMode != RenderModeWireframe {
		checkTex = "[✓]"
	}
	checkWire := "[ ]"
	if view.RenderMode == RenderModeWireframe {
		checkWire = "[✓]"
	}
	checkMirror := "[ ]"
	if r.Context().Mirror() {
		checkMirror = "[✓]"
	}
	mode := fmt.Sprintf("%s%s %s Texture  %s Wireframe  %s Mirror  dropped %d %s",
		bgBlack, fgWhite, checkTex, checkWire, checkMirror, r.Dropped(), reset)
	fmt.Print(moveTo(height, 1) + mode)

	hint := fmt.Sprintf("%s%s%s L: position light %s", bgBlack, dim, fgYellow, reset)
	fmt.Print(moveTo(height, max(width-18, 1)) + hint)
}

func run(modelPath string, logger *slog.Logger) error {
	opts, err := parseOptions()
	if err != nil {
		return err
	}

	sc, err := loadScene(modelPath, opts, logger)
	if err != nil {
		return err
	}
	logger.Debug("model loaded", "name", sc.name, "vertices", sc.mesh.VertexCount(), "triangles", sc.mesh.TriangleCount())

	if *pngPath != "" {
		return renderPNG(sc, opts, *pngPath, logger)
	}
	return runTerminal(sc, opts, logger)
}

func runTerminal(sc *scene, opts options, logger *slog.Logger) error {
	term := uv.DefaultTerminal()

	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}
	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}

	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)

	fmt.Fprint(os.Stdout, "\x1b[?1003h") // any-event mouse tracking
	fmt.Fprint(os.Stdout, "\x1b[?1006h") // SGR extended mouse mode

	cleanup := func() {
		fmt.Fprint(os.Stdout, "\x1b[?1003l")
		fmt.Fprint(os.Stdout, "\x1b[?1006l")
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}
	defer cleanup()

	fbWidth, fbHeight := render.TerminalSize(width, height)
	camera := newCamera(fbWidth, fbHeight)
	r := newRenderer(camera, fbWidth, fbHeight, opts)
	defer func() { r.Close() }()

	hud := NewHUD(sc.name, sc.mesh.TriangleCount())
	rotation := NewRotationState(*targetFPS)
	view := NewViewState()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inputTorque := struct{ pitch, yaw, roll float64 }{}
	const torqueStrength = 3.0

	var mouseDown bool
	var lastMouseX, lastMouseY int
	var cameraZ float32 = 5
	zoom := func(dz float32) {
		cameraZ = min(max(cameraZ+dz, 1), 20)
		camera.SetPosition(math3d.V3(0, 0, cameraZ))
	}

	// Events are handled between frames so nothing races the renderer.
	handle := func(ev uv.Event) (quit bool) {
		switch ev := ev.(type) {
		case uv.WindowSizeEvent:
			width, height = ev.Width, ev.Height
			term.Erase()
			term.Resize(width, height)
			fbWidth, fbHeight = render.TerminalSize(width, height)
			r.Close()
			r = newRenderer(camera, fbWidth, fbHeight, opts)
			camera.SetAspectRatio(float32(fbWidth) / float32(fbHeight))
			logger.Debug("resized", "cols", width, "rows", height)

		case uv.KeyPressEvent:
			switch {
			case ev.MatchString("escape"):
				if !view.LightMode {
					return true
				}
				view.LightMode = false
			case ev.MatchString("ctrl+c"):
				return true
			case ev.MatchString("q"):
				inputTorque.roll = -torqueStrength
			case ev.MatchString("e"):
				inputTorque.roll = torqueStrength
			case ev.MatchString("r"):
				rotation.Reset()
				cameraZ = 5
				zoom(0)
			case ev.MatchString("w", "up"):
				inputTorque.pitch = -torqueStrength
			case ev.MatchString("s", "down"):
				inputTorque.pitch = torqueStrength
			case ev.MatchString("a", "left"):
				inputTorque.yaw = -torqueStrength
			case ev.MatchString("d", "right"):
				inputTorque.yaw = torqueStrength
			case ev.MatchString("space"):
				rotation.ApplyImpulse(
					(rand.Float64()-0.5)*1.5,
					(rand.Float64()-0.5)*1.5,
					(rand.Float64()-0.5)*1.5,
				)
			case ev.MatchString("+", "="):
				zoom(-0.5)
			case ev.MatchString("-", "_"):
				zoom(0.5)
			case ev.MatchString("t"):
				view.TextureEnabled = !view.TextureEnabled
			case ev.MatchString("x"):
				if view.RenderMode == RenderModeWireframe {
					view.RenderMode = RenderModeTextured
				} else {
					view.RenderMode = RenderModeWireframe
				}
			case ev.MatchString("m"):
				r.Context().ToggleMirror()
			case ev.MatchString("g"):
				view.ShowGuides = !view.ShowGuides
			case ev.MatchString("l"):
				view.LightMode = true
				view.PendingLight = view.LightDir
			case ev.MatchString("?"), ev.MatchString("shift+/"):
				view.ShowHUD = !view.ShowHUD
			}

		case uv.KeyReleaseEvent:
			switch {
			case ev.MatchString("w", "up", "s", "down"):
				inputTorque.pitch = 0
			case ev.MatchString("a", "left", "d", "right"):
				inputTorque.yaw = 0
			case ev.MatchString("q", "e"):
				inputTorque.roll = 0
			}

		case uv.MouseClickEvent:
			if view.LightMode {
				view.LightDir = view.PendingLight
				view.LightMode = false
			} else {
				mouseDown = true
				lastMouseX, lastMouseY = ev.X, ev.Y
			}

		case uv.MouseReleaseEvent:
			mouseDown = false

		case uv.MouseMotionEvent:
			if view.LightMode {
				view.PendingLight = view.ScreenToLightDir(ev.X, ev.Y, width, height)
			} else if mouseDown {
				dx, dy := ev.X-lastMouseX, ev.Y-lastMouseY
				rotation.ApplyImpulse(float64(dy)*0.03, float64(dx)*0.03, 0)
				lastMouseX, lastMouseY = ev.X, ev.Y
			}

		case uv.MouseWheelEvent:
			switch ev.Button {
			case uv.MouseWheelUp:
				zoom(-0.5)
			case uv.MouseWheelDown:
				zoom(0.5)
			}
		}
		return false
	}

	events := term.Events()
	targetDuration := time.Second / time.Duration(max(*targetFPS, 1))
	lastFrame := time.Now()

	for {
	drain:
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-events:
				if !ok || handle(ev) {
					return nil
				}
			default:
				break drain
			}
		}

		now := time.Now()
		dt := min(now.Sub(lastFrame).Seconds(), 0.1)
		lastFrame = now

		// Key release events are unreliable, so held torque decays.
		rotation.ApplyImpulse(inputTorque.pitch*dt, inputTorque.yaw*dt, inputTorque.roll*dt)
		inputTorque.pitch *= 0.9
		inputTorque.yaw *= 0.9
		inputTorque.roll *= 0.9
		rotation.Update()

		drawScene(r, sc, rotation.Transform(), view, opts)

		r.Framebuffer().Draw(term, uv.Rectangle(image.Rect(0, 0, width, height)))
		if err := term.Display(); err != nil {
			return fmt.Errorf("display: %w", err)
		}

		hud.UpdateFPS()
		hud.Render(width, height, view, r)

		if elapsed := time.Since(now); elapsed < targetDuration {
			time.Sleep(targetDuration - elapsed)
		}
	}
}
