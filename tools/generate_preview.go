//go:build ignore

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/ankek/terraform-provider-preview/internal/document"
	"github.com/ankek/terraform-provider-preview/internal/renderer"
)

const sample = `{
	"frame": {"width": 1080, "height": 1080},
	"background": {"type": "color", "value": "#f4f1ea"},
	"objects": [
		{"type": "StaticPath", "left": 90, "top": 90, "metadata": {
			"fill": "#2c3e50",
			"value": [["M", 0, 0], ["L", 900, 0], ["L", 900, 520], ["L", 0, 520], ["Z"]]
		}},
		{"type": "StaticText", "left": 140, "top": 180, "width": 800, "metadata": {
			"text": "Summer Sale\nUp to 50% off",
			"fontSize": 96, "fontWeight": 700, "fill": "#ffffff", "lineHeight": 1.2
		}},
		{"type": "Group", "left": 540, "top": 840, "width": 600, "height": 200, "angle": -4, "objects": [
			{"type": "StaticPath", "left": -300, "top": -100, "metadata": {
				"fill": "#e67e22",
				"value": [["M", 0, 0], ["L", 600, 0], ["L", 600, 200], ["L", 0, 200], ["Z"]]
			}},
			{"type": "StaticText", "left": -260, "top": -50, "width": 520, "metadata": {
				"text": "SHOP NOW", "fontSize": 80, "fill": "#ffffff", "textAlign": "center"
			}}
		]},
		{"type": "DynamicText", "left": 90, "top": 660, "width": 400, "metadata": {
			"text": "{{customer_name}}", "fontSize": 40
		}}
	]
}`

func main() {
	fmt.Println("Rendering sample template...")

	doc, err := document.ParseDocument([]byte(sample))
	if err != nil {
		fmt.Printf("Error parsing document: %v\n", err)
		os.Exit(1)
	}

	r, err := renderer.New(renderer.Options{
		Multiplier: 1,
		Logger:     hclog.New(&hclog.LoggerOptions{Name: "generate_preview", Level: hclog.Debug}),
	})
	if err != nil {
		fmt.Printf("Error creating renderer: %v\n", err)
		os.Exit(1)
	}

	res, err := r.Render(context.Background(), doc)
	if err != nil {
		fmt.Printf("Error rendering: %v\n", err)
		os.Exit(1)
	}
	for _, d := range res.Diagnostics.Strings() {
		fmt.Printf("warning: %s\n", d)
	}

	if err := res.WriteFile("preview.png"); err != nil {
		fmt.Printf("Error writing preview: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Preview generated at preview.png (%dx%d)\n", res.Width, res.Height)
}
