// validate-config checks tgmedia configuration files for YAML errors
// and unknown keys before they reach the downloader.
package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"tgmedia/internal/config"
)

func main() {
	paths := os.Args[1:]
	if len(paths) == 0 {
		paths = []string{"config.yaml"}
	}

	failed := false
	for _, path := range paths {
		if err := validate(path); err != nil {
			fmt.Printf("❌ %s: %v\n", path, err)
			failed = true
			continue
		}
		fmt.Printf("✅ %s is valid\n", path)
	}

	if failed {
		os.Exit(1)
	}
}

// validate parses the file into the typed config, rejecting keys the
// application does not know about.
func validate(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg config.Config
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return err
	}
	return nil
}
