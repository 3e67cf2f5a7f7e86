package zoar

import (
	"slices"

	"github.com/samber/lo"

	"github.com/yaklabco/zoar/config"
	"github.com/yaklabco/zoar/pkg/pattern"
)

// Layer is one source of patterns. Relative patterns resolve against Cwd.
type Layer struct {
	Name         string
	Cwd          string
	Files        []string
	Ignore       []string
	Watch        []string
	WatchEnabled bool
}

// Input is what a run operates on: the test files and, in watch mode, the
// files whose changes trigger a rerun.
type Input struct {
	Files pattern.Query  `yaml:"files"`
	Watch *pattern.Query `yaml:"watch,omitempty"`
}

// MergeInputs folds layers in order. The files of a later layer replace the
// earlier ones, ignore patterns and watch patterns accumulate. Watching is
// decided by the last layer; without any watch pattern the test files
// themselves are watched.
func MergeInputs(layers ...Layer) Input {
	var (
		files  pattern.Spec
		ignore []pattern.Spec
		watch  []pattern.Spec
		cwd    string
	)
	for _, layer := range layers {
		if cwd == "" {
			cwd = layer.Cwd
		}
		if len(layer.Files) > 0 {
			files = pattern.Spec{Cwd: layer.Cwd, Pattern: slices.Clone(layer.Files)}
		}
		if len(layer.Ignore) > 0 {
			ignore = append(ignore, pattern.Spec{Cwd: layer.Cwd, Pattern: slices.Clone(layer.Ignore)})
		}
		if len(layer.Watch) > 0 {
			watch = append(watch, pattern.Spec{Cwd: layer.Cwd, Pattern: slices.Clone(layer.Watch)})
		}
	}

	input := Input{
		Files: pattern.Query{Cwd: cwd, Specs: []pattern.Spec{}, Ignore: ignore},
	}
	if len(files.Pattern) > 0 {
		input.Files.Specs = []pattern.Spec{files}
	}

	if len(layers) == 0 || !layers[len(layers)-1].WatchEnabled {
		return input
	}
	if len(watch) == 0 {
		watch = input.Files.Specs
	}
	if len(watch) == 0 {
		return input
	}
	input.Watch = &pattern.Query{Cwd: cwd, Specs: watch, Ignore: ignore}
	return input
}

// configLayers returns the layers of the built-in defaults and of every
// loaded configuration file. Values set through the environment or overrides
// form a last layer.
func configLayers(cfg *config.Config, cwd string) []Layer {
	layers := []Layer{{
		Name:   "defaults",
		Cwd:    cwd,
		Files:  []string{config.DefaultFilePattern},
		Ignore: config.DefaultIgnore(),
	}}
	for _, source := range cfg.Sources {
		layers = append(layers, Layer{
			Name:   source.Path,
			Cwd:    source.Dir,
			Files:  source.Files,
			Ignore: source.Ignore,
			Watch:  source.Watch,
		})
	}

	effective, _, _ := lo.FindLastIndexOf(layers, func(l Layer) bool { return len(l.Files) > 0 })
	if len(cfg.Files) > 0 && !slices.Equal(cfg.Files, effective.Files) {
		layers = append(layers, Layer{Name: "environment", Cwd: cwd, Files: cfg.Files})
	}
	return layers
}
