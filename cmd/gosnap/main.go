// Command gosnap signs in, manages sessions, and sends and loads snaps from
// the command line. Configuration is read from an optional YAML file and
// GOSNAP_ environment variables.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "gosnap:", err)
		os.Exit(1)
	}
}
