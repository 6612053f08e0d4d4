package main

import (
	"fmt"
	"os"

	"github.com/spigell/jobfit/cmd"
	"github.com/spigell/jobfit/internal/pipeline"
)

func main() {
	err := cmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(pipeline.ExitCode(err))
}
