package main

import (
	"fmt"
	"os"

	"github.com/cws-dev/cwstools/pkg/dax"
)

// Main entry point for `dax2dag` app.
func main() {
	// Create a new app
	dax2dagApp, err := dax.NewDAX2DAG()
	if err != nil {
		panic("Failed to create an instance of DAX2DAG App")
	}

	// Main entrypoint of the app
	if err := dax2dagApp.Main(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
