// ./main.go
package main

import (
	"github.com/kdelwat9/snap2mealie/cmd"
)

// main is the entry point for the snap2mealie application.
func main() {
	// Execute the root command defined in the cmd package.
	// This handles all command-line parsing, configuration, and execution.
	cmd.Execute()
}
