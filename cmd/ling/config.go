package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

type config struct {
	MaxDepth int `yaml:"max_depth"`
}

// loadConfig reads the optional YAML config: $LING_CONFIG if set,
// .ling.yaml in the working directory otherwise. Missing files are
// fine, broken ones are not.
func loadConfig() config {
	var cfg config

	name := os.Getenv("LING_CONFIG")
	if name == "" {
		name = ".ling.yaml"
	}

	data, err := os.ReadFile(name)
	if os.IsNotExist(err) && os.Getenv("LING_CONFIG") == "" {
		return cfg
	}
	if err != nil {
		fail(exitUsage, err)
	}

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		fail(exitUsage, err)
	}

	return cfg
}
