package main

import (
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/chewxy/math32"
	xdraw "golang.org/x/image/draw"

	"github.com/taigrr/softpoly/pkg/math3d"
	"github.com/taigrr/softpoly/pkg/models"
	"github.com/taigrr/softpoly/pkg/render"
)

const builtinCube = "cube"

var (
	flatColor   = render.RGB(200, 200, 200)
	wireColor   = render.RGB(0, 255, 128)
	guideColor  = render.RGB(90, 90, 110)
	markerColor = render.RGB(255, 220, 80)
)

// options are the parsed rendering flags.
type options struct {
	bg      render.Color
	cfg     render.RendererConfig
	palette color.Palette // nil for a true-colour framebuffer
	fogVis  float32
	maxTex  int
}

func parseOptions() (options, error) {
	opts := options{maxTex: *maxTexture}

	var r, g, b uint8
	if _, err := fmt.Sscanf(*bgColor, "%d,%d,%d", &r, &g, &b); err != nil {
		return opts, fmt.Errorf("invalid -bg %q: %w", *bgColor, err)
	}
	opts.bg = render.RGB(r, g, b)

	accel, err := render.ParseAccel(*accelName)
	if err != nil {
		return opts, err
	}

	switch strings.ToLower(*formatName) {
	case "rgba":
	case "paletted":
		opts.palette = palette.Plan9
	default:
		return opts, fmt.Errorf("unknown -format %q (use rgba or paletted)", *formatName)
	}

	n := *workers
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	opts.fogVis = float32(*fog)
	opts.cfg = render.RendererConfig{
		Workers:   n,
		Accel:     accel,
		ArenaSize: *arenaSize,
		Ambient:   0.15,
		Fog:       opts.fogVis > 0,
	}
	return opts, nil
}

// scene is a model normalised to fit a 2-unit cube at the origin.
type scene struct {
	name    string
	mesh    *models.Mesh
	texture *render.Texture
}

func loadScene(path string, opts options, logger *slog.Logger) (*scene, error) {
	sc := &scene{name: path}
	var embedded image.Image

	if path == builtinCube {
		sc.mesh = models.NewCube(2)
	} else {
		sc.name = filepath.Base(path)
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".glb", ".gltf":
			var err error
			sc.mesh, embedded, err = models.LoadGLBWithTexture(path)
			if err != nil {
				return nil, fmt.Errorf("load model: %w", err)
			}
		default:
			return nil, fmt.Errorf("unsupported format: %s (use .glb, .gltf or %q)", ext, builtinCube)
		}
	}

	img := embedded
	if *texturePath != "" {
		loaded, err := loadImage(*texturePath)
		if err != nil {
			logger.Warn("could not load texture", "path", *texturePath, "err", err)
		} else {
			img = loaded
		}
	}
	if img == nil {
		img = render.NewCheckerTexture(64, 64, 8, render.RGB(200, 200, 200), render.RGB(100, 100, 100)).ToImage()
	}
	sc.texture = makeTexture(render.FitImage(img, opts.maxTex), opts.palette)
	logger.Debug("texture ready", "width", sc.texture.Width, "height", sc.texture.Height, "paletted", sc.texture.Paletted)

	size := sc.mesh.Size()
	if maxDim := max(size.X, size.Y, size.Z); maxDim > 0 {
		scale := 2 / maxDim
		sc.mesh.Transform(math3d.ScaleUniform(scale).Mul(math3d.Translate(sc.mesh.Center().Negate())))
	}
	return sc, nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// makeTexture converts img for the framebuffer format: mapped onto pal for
// paletted targets, true colour otherwise.
func makeTexture(img image.Image, pal color.Palette) *render.Texture {
	if pal != nil {
		return render.PalettedTextureFromImage(img, pal)
	}
	if _, ok := img.(*image.Paletted); ok {
		rgba := image.NewRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
		xdraw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, xdraw.Src)
		img = rgba
	}
	return render.TextureFromImage(img)
}

func newCamera(width, height int) *render.Camera {
	camera := render.NewCamera()
	camera.SetAspectRatio(float32(width) / float32(height))
	camera.SetFOV(math32.Pi / 3)
	camera.SetClipPlanes(0.1, 100)
	camera.SetPosition(math3d.V3(0, 0, 5))
	camera.LookAt(math3d.Zero3())
	return camera
}

func newRenderer(camera *render.Camera, width, height int, opts options) *render.Renderer {
	var fb *render.Framebuffer
	if opts.palette != nil {
		fb = render.NewPalettedFramebuffer(width, height, opts.palette)
	} else {
		fb = render.NewFramebuffer(width, height)
	}
	return render.NewRenderer(camera, fb, opts.cfg)
}

// drawScene renders one complete frame.
func drawScene(r *render.Renderer, sc *scene, transform math3d.Mat4, view *ViewState, opts options) {
	r.BeginFrame(opts.bg)
	if r.Context().Mirror() {
		// A reflected model winds the other way; the context compensates.
		transform = math3d.Scale(math3d.V3(-1, 1, 1)).Mul(transform)
	}

	lightDir := view.LightDir
	if view.LightMode {
		lightDir = view.PendingLight
	}

	switch {
	case view.RenderMode == RenderModeWireframe:
		r.DrawMeshWireframe(sc.mesh, transform, wireColor)
	case view.RenderMode == RenderModeFlat || !view.TextureEnabled:
		r.DrawMesh(sc.mesh, transform, flatColor, lightDir)
	default:
		r.DrawMeshTextured(sc.mesh, transform, sc.texture, lightDir)
	}

	if opts.cfg.Fog && view.RenderMode != RenderModeWireframe {
		r.ApplyFog(opts.fogVis)
	}
	if view.LightMode {
		x, y := lightMarker(lightDir, r.Framebuffer().Width, r.Framebuffer().Height)
		r.DrawRect(x-1, y-1, 3, 3, markerColor)
	}
	r.Finish()
	if view.ShowGuides {
		r.DrawGuides(4, -1, guideColor)
	}
}

// lightMarker is the framebuffer position ScreenToLightDir maps to dir.
func lightMarker(dir math3d.Vec3, width, height int) (x, y int) {
	x = int((dir.X + 1) / 2 * float32(width))
	y = int((1 - dir.Y) / 2 * float32(height))
	return x, y
}

func parseSize(s string) (width, height int, err error) {
	if _, err := fmt.Sscanf(s, "%dx%d", &width, &height); err != nil {
		return 0, 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("invalid size %q", s)
	}
	return width, height, nil
}

// renderPNG draws a single frame at a fixed three-quarter view.
func renderPNG(sc *scene, opts options, path string, logger *slog.Logger) error {
	width, height, err := parseSize(*pngSize)
	if err != nil {
		return err
	}

	// A single frame draws each call across the workers directly.
	opts.cfg.Immediate = true
	r := newRenderer(newCamera(width, height), width, height, opts)
	defer r.Close()

	transform := math3d.RotateX(0.45).Mul(math3d.RotateY(-0.6))
	drawScene(r, sc, transform, NewViewState(), opts)

	if err := r.Framebuffer().SavePNG(path); err != nil {
		return err
	}
	logger.Info("frame written",
		"path", path,
		"width", width,
		"height", height,
		"workers", r.Workers(),
		"accel", opts.cfg.Accel,
		"dropped", r.Dropped())
	fmt.Printf("Wrote %s (%dx%d)\n", path, width, height)
	return nil
}
