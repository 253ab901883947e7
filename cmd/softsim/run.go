package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/softsim/internal/automation"
	"github.com/san-kum/softsim/internal/config"
	"github.com/san-kum/softsim/internal/experiment"
	"github.com/san-kum/softsim/internal/integrators"
	"github.com/san-kum/softsim/internal/storage"
	"github.com/san-kum/softsim/internal/stream"
)

func runScene(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	scene, err := experiment.NewRegistry().Build(cfg)
	if err != nil {
		return err
	}
	defer scene.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Println(titleStyle.Render(fmt.Sprintf("running %s simulation...", sceneLabel(cfg))))
	result, runErr := scene.Run(ctx, cfg.Run())
	if result == nil {
		return runErr
	}

	meta := automation.Metadata(sceneLabel(cfg), cfg)
	runID, err := st.Save(meta, result)
	if err != nil {
		return err
	}

	if jsonOut {
		meta.ID = runID
		if err := storage.ExportJSON(os.Stdout, meta, result); err != nil {
			return err
		}
	}

	status := okStyle.Render("completed")
	if runErr != nil {
		status = warnStyle.Render("stopped: " + runErr.Error())
	}
	fmt.Println(status)
	printField("run id", runID)
	printField("steps", result.StepsTaken)
	printField("elapsed", result.Elapsed.Round(time.Millisecond))
	fmt.Println(titleStyle.Render("metrics"))
	printMetrics(result.Metrics)

	return runErr
}

func benchScene(cmd *cobra.Command, args []string) error {
	base, err := loadConfig(cmd, args[0])
	if err != nil {
		return err
	}
	if benchSteps < 1 {
		return fmt.Errorf("steps must be positive, got %d", benchSteps)
	}

	type variant struct {
		label string
		cfg   config.Config
	}
	var variants []variant
	switch base.Scene {
	case config.SceneSoftBody:
		for _, name := range integrators.Names() {
			c := *base
			c.Integrator = name
			variants = append(variants, variant{name, c})
		}
	case config.SceneFluid:
		for _, it := range []int{1, 2, 4, 8} {
			c := *base
			c.Fluid.Iterations = it
			variants = append(variants, variant{fmt.Sprintf("%s x%d", c.Backend, it), c})
		}
	default:
		return fmt.Errorf("unknown scene: %s", base.Scene)
	}

	fmt.Println(titleStyle.Render("benchmarking " + sceneLabel(base)))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VARIANT\tSTEPS\tTIME\tSTEPS/SEC")

	registry := experiment.NewRegistry()
	for _, v := range variants {
		scene, err := registry.Build(&v.cfg)
		if err != nil {
			return err
		}
		start := time.Now()
		t := 0.0
		for i := 0; i < benchSteps; i++ {
			if err := scene.Step(t, v.cfg.Dt); err != nil {
				scene.Close()
				return fmt.Errorf("%s: step %d: %w", v.label, i, err)
			}
			t += v.cfg.Dt
		}
		elapsed := time.Since(start)
		scene.Close()

		fmt.Fprintf(w, "%s\t%d\t%v\t%.0f\n",
			v.label, benchSteps, elapsed.Round(time.Microsecond), float64(benchSteps)/elapsed.Seconds())
	}
	return w.Flush()
}

// pacer sleeps in OnStep until wall-clock time catches up with simulated time.
type pacer struct {
	start time.Time
}

func (p *pacer) OnStep(t float64, _ [][]float32) {
	ahead := time.Duration(t*float64(time.Second)) - time.Since(p.start)
	if ahead > 0 {
		time.Sleep(ahead)
	}
}

func serveScene(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args[0])
	if err != nil {
		return err
	}

	scene, err := experiment.NewRegistry().Build(cfg)
	if err != nil {
		return err
	}
	defer scene.Close()

	hub := stream.NewHub(cfg.Stream.Every)
	hub.SetTopology(scene.Topology())
	scene.AddObserver(hub)
	if realtime {
		scene.AddObserver(&pacer{start: time.Now()})
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	srv := &http.Server{Addr: cfg.Stream.Addr, Handler: mux}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Println(titleStyle.Render(fmt.Sprintf("streaming %s on ws://%s/ws", sceneLabel(cfg), cfg.Stream.Addr)))
	result, runErr := scene.Run(ctx, cfg.Run())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("server shutdown", "err", err)
	}
	if err := <-serveErr; err != nil {
		return err
	}

	if result != nil {
		printField("steps", result.StepsTaken)
		printMetrics(result.Metrics)
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}
