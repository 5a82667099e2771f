package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/tedkimdev/nft-staking/cmd/nft-staking/cli"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("failed to load .env file")
	}
}

func main() {
	if err := cli.Setup(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
