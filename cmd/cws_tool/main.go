package main

import (
	"fmt"
	"os"

	"github.com/cws-dev/cwstools/pkg/tool"
)

// Main entry point for `cws_tool` app.
func main() {
	app, err := tool.NewCWSTool()
	if err != nil {
		panic("Failed to create an instance of CWSTool App")
	}

	os.Exit(checkErr(app.Main()))
}

func checkErr(err error) int {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)

		return 1
	}

	return 0
}
