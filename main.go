// Package main provides the sketchpad command: load a sketch, relax it
// toward its constraints, and write the result.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"sketchpad/internal/app"
	"sketchpad/internal/config"
	"sketchpad/internal/render"
	"sketchpad/internal/sketch"
	"sketchpad/internal/solver"
	"sketchpad/internal/version"

	"github.com/ttacon/chalk"
)

func main() {
	sketchPath := flag.String("sketch", "", "Sketch file to load")
	configPath := flag.String("config", "", "Config file (default ~/.config/sketchpad/config.yaml)")
	equal := flag.String("equal", "", "Comma-separated segment IDs to equalize")
	target := flag.String("target", "", "Equal-length target: per_component or global (overrides config)")
	merge := flag.Bool("merge", false, "Merge points closer than snap.merge_threshold first")
	solve := flag.Bool("solve", false, "Solve the registered constraints")
	out := flag.String("out", "", "Write the resulting sketch here")
	svgPath := flag.String("svg", "", "Write an SVG rendering here")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("sketchpad"))
		return
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if *sketchPath == "" {
		fmt.Println("Usage: sketchpad -sketch <file> [-equal 1,2,3] [-solve] [-out <file>] [-svg <file>]")
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config: %v\n", err)
		os.Exit(1)
	}
	if *target != "" {
		cfg.EqualLength.Target = *target
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Config: %v\n", err)
			os.Exit(1)
		}
	}

	state := app.NewState(cfg)
	if err := state.Load(*sketchPath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load sketch: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *merge {
		fmt.Printf("Merged %d points\n", state.MergeClosePoints())
	}

	if *equal != "" {
		ids, err := parseIDs(*equal)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Bad -equal: %v\n", err)
			os.Exit(1)
		}
		for _, id := range ids {
			if err := state.SelectSegment(id); err != nil {
				fmt.Fprintf(os.Stderr, "Bad -equal: %v\n", err)
				os.Exit(1)
			}
		}
		res, err := state.SolveEqualLength(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Equal length failed: %v\n", err)
			os.Exit(1)
		}
		report("Equal length", res)
	}

	if *solve {
		res, err := state.SolveConstraints(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Solve failed: %v\n", err)
			os.Exit(1)
		}
		report(fmt.Sprintf("Constraints (%d)", len(state.Constraints())), res)
	}

	if *out != "" {
		if err := state.Save(*out); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to save sketch: %v\n", err)
			os.Exit(1)
		}
	}

	if *svgPath != "" {
		if err := writeSVG(*svgPath, state); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write SVG: %v\n", err)
			os.Exit(1)
		}
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadDefault()
	}
	return config.Load(path)
}

func parseIDs(list string) ([]sketch.SegmentID, error) {
	var ids []sketch.SegmentID
	for _, field := range strings.Split(list, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, err
		}
		ids = append(ids, sketch.SegmentID(n))
	}
	return ids, nil
}

func report(what string, res solver.Result) {
	color := chalk.Green
	if res.Status != solver.Converged {
		color = chalk.Yellow
	}
	fmt.Printf("%s: %s after %d iterations (residual %.3f)\n",
		what, color.Color(res.Status.String()), res.Iterations, res.Residual)
}

func writeSVG(path string, state *app.State) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	opts := render.DefaultOptions()
	opts.Labels = true
	if err := render.WriteSVG(f, state.Store(), opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
