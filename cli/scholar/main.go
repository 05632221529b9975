package main

import (
	"os"

	scholarcmder "github.com/papercomputeco/scholar/cmd/scholar"
)

func main() {
	cmd := scholarcmder.NewScholarCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
