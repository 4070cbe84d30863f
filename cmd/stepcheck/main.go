// Command stepcheck guides a user through a physical assembly and verifies
// each step against a classifier.
package main

import (
	"os"

	"github.com/Iron-Ham/stepcheck/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
