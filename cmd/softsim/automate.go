package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/softsim/internal/automation"
	"github.com/san-kum/softsim/internal/experiment"
	"github.com/san-kum/softsim/internal/optim"
	"github.com/san-kum/softsim/internal/storage"
)

func sweepScene(cmd *cobra.Command, args []string) error {
	base, err := loadConfig(cmd, args[0])
	if err != nil {
		return err
	}
	if len(sweepRanges) == 0 {
		return fmt.Errorf("at least one --param is required")
	}

	sweep := &automation.ParameterSweep{Base: base, Metric: metricName, Workers: workers}
	for _, expr := range sweepRanges {
		name, values, err := optim.ParseRange(expr)
		if err != nil {
			return err
		}
		sweep.Names = append(sweep.Names, name)
		sweep.Ranges = append(sweep.Ranges, values)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Println(titleStyle.Render(fmt.Sprintf("sweeping %s over %s", sceneLabel(base), strings.Join(sweep.Names, ", "))))
	start := time.Now()
	best, all, sweepErr := automation.RunSweep(ctx, sweep, experiment.NewRegistry())
	if sweepErr != nil && len(all) == 0 {
		return sweepErr
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\n", strings.ToUpper(strings.Join(sweep.Names, "\t")), strings.ToUpper(metricName))
	for _, p := range optim.Sorted(all) {
		if p.Params == nil {
			continue
		}
		cols := make([]string, len(sweep.Names))
		for i, name := range sweep.Names {
			cols[i] = fmt.Sprintf("%g", p.Params[name])
		}
		value := fmt.Sprintf("%.6g", p.Value)
		if p.Err != nil {
			value = warnStyle.Render("failed: " + p.Err.Error())
		}
		fmt.Fprintf(w, "%s\t%s\n", strings.Join(cols, "\t"), value)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if sweepErr != nil {
		return sweepErr
	}

	fmt.Println(titleStyle.Render("best"))
	names := make([]string, 0, len(best.Params))
	for name := range best.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		printField(name, best.Params[name])
	}
	printField(metricName, fmt.Sprintf("%.6g", best.Value))
	printField("elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Println(titleStyle.Render("scenario " + sc.Name))
	if sc.Description != "" {
		fmt.Println(sc.Description)
	}
	results, runErr := automation.RunScenario(ctx, sc, experiment.NewRegistry(), st)
	for _, r := range results {
		printField(r.Label, r.RunID)
	}
	if runErr != nil {
		fmt.Println(warnStyle.Render(runErr.Error()))
		return runErr
	}
	fmt.Println(okStyle.Render(fmt.Sprintf("completed %d steps", len(results))))
	return nil
}
