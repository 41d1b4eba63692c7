package main

import (
	"fmt"
	"os"

	"github.com/radon-h2020/radon-defect-predictor/cmd/cli"
)

const (
	exitErrorTemplateConstant = "%v\n"
)

// main executes the radon-defect-predictor command-line application.
func main() {
	if executionError := cli.Execute(); executionError != nil {
		fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)
		os.Exit(1)
	}
}
