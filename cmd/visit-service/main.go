package main

import (
	"os"

	"github.com/terra-femme/MedJournee/visitservice"
)

func main() {
	if err := visitservice.Run(); err != nil {
		os.Exit(1)
	}
}
