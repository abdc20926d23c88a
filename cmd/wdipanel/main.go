// Command wdipanel builds a country-year panel of World Development Indicators
// and serves it over HTTP.
package main

import (
	"errors"
	"fmt"
	"os"

	"wdipanel/internal/dataprocessing"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "wdipanel: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 when no indicator produced data and 1 for every other failure
func exitCode(err error) int {
	if errors.Is(err, dataprocessing.ErrNoData) {
		return 2
	}
	return 1
}
