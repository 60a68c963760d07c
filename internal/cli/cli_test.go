package cli

import (
	"io"
	"reflect"
	"testing"

	"github.com/liuji1031/visualize-architecture/pkg/pipeline"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()

	want := []string{"render", "refs", "explore", "serve", "presets", "completion"}
	for _, name := range want {
		found := false
		for _, cmd := range root.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestSetLogLevel(t *testing.T) {
	c := New(io.Discard, LogInfo)
	if c.Logger.GetLevel() != LogInfo {
		t.Fatalf("initial level = %v, want %v", c.Logger.GetLevel(), LogInfo)
	}
	c.SetLogLevel(LogDebug)
	if c.Logger.GetLevel() != LogDebug {
		t.Errorf("level after SetLogLevel = %v, want %v", c.Logger.GetLevel(), LogDebug)
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{"svg"}},
		{"dot", []string{"dot"}},
		{"svg,png", []string{"svg", "png"}},
		{"svg-native,dot", []string{"svg-native", "dot"}},
	}
	for _, tt := range tests {
		if got := parseFormats(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseFormats(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidateFormats(t *testing.T) {
	if err := validateFormats([]string{"svg", "dot", "svg-native", "png"}); err != nil {
		t.Errorf("valid formats rejected: %v", err)
	}
	if err := validateFormats([]string{"svg", "pdf"}); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestBasePath(t *testing.T) {
	tests := []struct {
		output, input string
		want          string
	}{
		{"", "model.yaml", "model"},
		{"", "dir/model.yaml", "dir/model"},
		{"out.svg", "model.yaml", "out"},
		{"out.png", "model.yaml", "out"},
		{"out", "model.yaml", "out"},
		{"archive.tar", "model.yaml", "archive.tar"}, // unknown ext kept
	}
	for _, tt := range tests {
		if got := basePath(tt.output, tt.input); got != tt.want {
			t.Errorf("basePath(%q, %q) = %q, want %q", tt.output, tt.input, got, tt.want)
		}
	}
}

func TestFormatExt(t *testing.T) {
	if got := formatExt(formatSVGNative); got != "native.svg" {
		t.Errorf("formatExt(svg-native) = %q, want %q", got, "native.svg")
	}
	if got := formatExt(formatPNG); got != "png" {
		t.Errorf("formatExt(png) = %q, want %q", got, "png")
	}
}

func TestFillLayoutDefaults(t *testing.T) {
	defaults := pipeline.Options{
		Orientation: "TB",
		NodeWidth:   160,
		NodeHeight:  60,
		RankGap:     90,
		NodeGap:     40,
	}

	opts := pipeline.Options{Orientation: "LR", NodeWidth: 200}
	fillLayoutDefaults(&opts, defaults)

	if opts.Orientation != "LR" {
		t.Errorf("Orientation = %q, user value should win", opts.Orientation)
	}
	if opts.NodeWidth != 200 {
		t.Errorf("NodeWidth = %v, user value should win", opts.NodeWidth)
	}
	if opts.NodeHeight != 60 || opts.RankGap != 90 || opts.NodeGap != 40 {
		t.Errorf("zero fields should take defaults, got %+v", opts)
	}
}
