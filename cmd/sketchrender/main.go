// Command sketchrender draws a saved sketch as SVG.
package main

import (
	"flag"
	"fmt"
	"os"

	"sketchpad/internal/project"
	"sketchpad/internal/render"
	"sketchpad/internal/sketch"
)

func main() {
	in := flag.String("sketch", "", "Sketch file to render")
	out := flag.String("out", "", "SVG output path (default stdout)")
	scale := flag.Float64("scale", 1, "Output units per sketch unit")
	margin := flag.Float64("margin", 10, "Margin around the drawing, in sketch units")
	labels := flag.Bool("labels", false, "Label segments with their IDs")
	points := flag.Bool("points", true, "Draw points")
	flag.Parse()

	if *in == "" {
		fmt.Println("Usage: sketchrender -sketch <file> [-out <file.svg>] [-scale 2] [-labels]")
		os.Exit(1)
	}

	doc, err := project.Load(*in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load sketch: %v\n", err)
		os.Exit(1)
	}
	store, _, err := doc.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid sketch: %v\n", err)
		os.Exit(1)
	}

	opts := render.Options{Scale: *scale, Margin: *margin, ShowPoints: *points, Labels: *labels}
	if err := write(*out, store, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render: %v\n", err)
		os.Exit(1)
	}
}

func write(path string, store *sketch.Store, opts render.Options) error {
	if path == "" {
		return render.WriteSVG(os.Stdout, store, opts)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render.WriteSVG(f, store, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
