package main

import (
	"os"

	"github.com/fleetgrid/fleetgrid/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
