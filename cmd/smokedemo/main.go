// Command smokedemo runs the smoke simulation headless and writes PNG
// frames of the raymarched volume.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gogpu/gpucontext"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/smoke"
	_ "github.com/gogpu/smoke/compute/wgpu" // registers the GPU backend
	"github.com/gogpu/smoke/diag"
	"github.com/gogpu/smoke/host"
	"github.com/gogpu/smoke/render"
)

func main() {
	var (
		backend    = flag.String("backend", "", "compute backend (wgpu, cpu); empty picks the best available")
		resolution = flag.Int("res", 64, "grid resolution")
		frames     = flag.Int("frames", 240, "frames to simulate")
		injectFor  = flag.Int("inject", 120, "inject smoke during the first N frames")
		fps        = flag.Float64("fps", 60, "simulated frames per second")
		width      = flag.Int("width", 512, "image width")
		height     = flag.Int("height", 512, "image height")
		outDir     = flag.String("out", "frames", "output directory")
		every      = flag.Int("every", 4, "write a PNG every N frames (0 disables)")
		statsEvery = flag.Int("stats", 30, "log statistics every N frames (0 disables)")
		view       = flag.String("view", "density", "debug view: density, pressure, divergence")
		orbit      = flag.Float64("orbit", 0, "camera orbit speed in degrees per frame")
		slices     = flag.Bool("slices", false, "also write a density slice through the grid centre")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	cfg := smoke.DefaultConfig()
	flag.Func("viscosity", "viscosity [0,1]", floatFlag(&cfg.Viscosity))
	flag.Func("timescale", "time scale [0,10]", floatFlag(&cfg.TimeScale))
	flag.Func("velocity", "injection velocity [0,50]", floatFlag(&cfg.VelocityScale))
	flag.Func("density", "render density scale", floatFlag(&cfg.Density))
	flag.IntVar(&cfg.DiffuseIterations, "diffuse", cfg.DiffuseIterations, "diffuse iterations [0,30]")
	flag.IntVar(&cfg.JacobiIterations, "jacobi", cfg.JacobiIterations, "jacobi iterations [0,50]")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	smoke.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	debugView, err := parseView(*view)
	if err != nil {
		log.Fatalf("smokedemo: %v", err)
	}

	sim, err := smoke.New(
		smoke.WithConfig(cfg),
		smoke.WithBackend(*backend),
		smoke.WithResolution(*resolution),
		smoke.WithImageSize(*width, *height),
		smoke.WithDebugView(debugView),
	)
	if err != nil {
		log.Fatalf("smokedemo: %v", err)
	}
	defer sim.Close()

	if *every > 0 {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			log.Fatalf("smokedemo: %v", err)
		}
	}
	if err := sim.Start(); err != nil {
		log.Fatalf("smokedemo: %v", err)
	}

	clock := host.NewFixedClock(time.Duration(float64(time.Second) / *fps))
	trigger := host.NewTrigger(gpucontext.KeySpace)
	orbitStep := float32(*orbit * math.Pi / 180)

	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(runtime.NumCPU())

	start := time.Now()
	for frame := range *frames {
		trigger.Set(frame < *injectFor)
		delta, _ := clock.Tick()
		if err := sim.Frame(delta, trigger.Sample()); err != nil {
			log.Fatalf("smokedemo: frame %d: %v", frame, err)
		}
		if orbitStep != 0 {
			sim.SetCamera(sim.Camera().Orbit(orbitStep))
		}

		if *statsEvery > 0 && (frame+1)%*statsEvery == 0 {
			logStats(sim, frame)
		}
		if *every > 0 && frame%*every == 0 {
			target := render.NewPixmapTarget(*width, *height)
			if err := sim.Render(target); err != nil {
				log.Fatalf("smokedemo: render frame %d: %v", frame, err)
			}
			name := filepath.Join(*outDir, fmt.Sprintf("frame_%04d.png", frame))
			img := target.Image()
			g.Go(func() error { return writePNG(name, img) })

			if *slices {
				slice, err := densitySlice(sim)
				if err != nil {
					log.Fatalf("smokedemo: slice frame %d: %v", frame, err)
				}
				sname := filepath.Join(*outDir, fmt.Sprintf("slice_%04d.png", frame))
				g.Go(func() error { return writePNG(sname, slice) })
			}
		}
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("smokedemo: %v", err)
	}

	took := time.Since(start)
	log.Printf("Simulated %d frames at %d³ on %s in %v (%.1f frames/s)",
		*frames, *resolution, sim.Service().Name(), took.Round(time.Millisecond),
		float64(*frames)/took.Seconds())
}

func floatFlag(dst *float32) func(string) error {
	return func(s string) error {
		var v float64
		if _, err := fmt.Sscan(s, &v); err != nil {
			return err
		}
		*dst = float32(v)
		return nil
	}
}

func parseView(s string) (render.DebugView, error) {
	for _, v := range []render.DebugView{render.ViewDensity, render.ViewPressure, render.ViewDivergence} {
		if v.String() == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown view %q", s)
}

func logStats(sim *smoke.Simulation, frame int) {
	st, err := sim.Stats()
	if err != nil {
		log.Fatalf("smokedemo: stats frame %d: %v", frame, err)
	}
	smoke.Logger().Info("stats",
		"frame", frame,
		"energy", st.Velocity.Energy,
		"maxSpeed", st.Velocity.MaxSpeed,
		"density", st.Velocity.Density,
		"meanAbsDiv", st.Divergence.MeanAbs,
		"rmsDiv", st.Divergence.RMS)
	if !st.Finite() {
		log.Fatalf("smokedemo: frame %d: non-finite values in grids", frame)
	}
}

func densitySlice(sim *smoke.Simulation) (*image.RGBA, error) {
	set := sim.Grids()
	data, err := sim.Service().ReadGrid(set.Velocity.Front())
	if err != nil {
		return nil, err
	}
	r := set.Resolution()
	return diag.Slice(data, r, r/2, diag.ChannelDensity)
}

func writePNG(name string, img image.Image) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return f.Close()
}
