// Command nanomodel manages schema-governed documents in a JSON file store.
// Models are declared in a YAML or TOML definitions file.
package main

import (
	"fmt"
	"os"
)

func main() {
	cli := NewCLI()
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
