// Command folio serves a portfolio site and manages its content store.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
