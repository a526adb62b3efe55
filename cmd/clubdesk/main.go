package main

import (
	"os"

	"github.com/rs/zerolog/log"
)

var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Error().Err(err).Msg("clubdesk")
		os.Exit(1)
	}
}
