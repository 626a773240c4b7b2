// nertrie recognizes named entities from a line grammar in text and HTML.
package main

import (
	"os"

	"github.com/cognicore/nertrie/cmd/nertrie/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
