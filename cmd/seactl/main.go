// Command seactl runs one-off sea-info operations from the shell: a full
// lookup against the live upstreams, a grid projection, or station
// resolution.
//
// Usage:
//
//	seactl lookup --lat 35.1586 --lon 129.1604
//	seactl grid --lat 37.5665 --lon 126.9780
//	seactl stations --lat 33.2450 --lon 126.5640 --buoys 3
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
