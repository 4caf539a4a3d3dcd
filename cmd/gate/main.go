package main

import (
	"log"

	"github.com/fieldserve/pingate/internal/tools/gatecli"
)

func main() {
	if err := gatecli.NewRootCommand().Execute(); err != nil {
		log.Fatal(err)
	}
}
