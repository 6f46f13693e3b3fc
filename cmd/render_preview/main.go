// Command render_preview renders a template document to an image file.
//
//	render_preview [-config render.hcl] [-multiplier 3] [-format png] [-v] document.json out.png
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/hashicorp/go-hclog"

	"github.com/ankek/terraform-provider-preview/internal/config"
	"github.com/ankek/terraform-provider-preview/internal/document"
	"github.com/ankek/terraform-provider-preview/internal/renderer"
	"github.com/ankek/terraform-provider-preview/internal/validation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("render_preview", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "HCL render configuration")
	multiplier := fs.Float64("multiplier", 0, "output scale relative to the frame size")
	format := fs.String("format", "", "output format: png or jpeg")
	verbose := fs.Bool("v", false, "verbose logging")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: render_preview [flags] document.json out.png")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return 2
	}
	docPath, outPath := fs.Arg(0), fs.Arg(1)

	level := hclog.Warn
	if *verbose {
		level = hclog.Debug
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "render_preview",
		Level:  level,
		Output: stderr,
	})

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(stderr, "Error loading config: %v\n", err)
			return 1
		}
	}
	if *format != "" {
		f, err := renderer.ParseFormat(*format)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		cfg.Render.Format = f
	}
	if *multiplier > 0 {
		cfg.Render.Multiplier = *multiplier
	}

	opts, err := cfg.RendererOptions(logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error configuring renderer: %v\n", err)
		return 1
	}

	if err := validation.ValidateInputPath(docPath); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := validation.ValidateOutputPath(outPath); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := validation.ValidateOutputExtension(outPath, string(cfg.Render.Format)); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	doc, err := document.ParseDocumentFile(ctx, docPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	r, err := renderer.New(opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error configuring renderer: %v\n", err)
		return 1
	}
	res, err := r.Render(ctx, doc)
	if err != nil {
		fmt.Fprintf(stderr, "Error rendering %s: %v\n", docPath, err)
		return 1
	}
	for _, d := range res.Diagnostics.Strings() {
		fmt.Fprintf(stderr, "warning: %s\n", d)
	}

	if err := res.WriteFile(outPath); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "%s: %dx%d %s, %d bytes\n", outPath, res.Width, res.Height, res.Format, len(res.Image))
	return 0
}
