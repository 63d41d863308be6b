package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"proctor-camera/internal/cli"
	"proctor-camera/internal/config"
	"proctor-camera/internal/output"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	deps := &cli.Dependencies{
		Config: config.New(),
	}

	if err := cli.NewRootCmd(deps).Execute(); err != nil {
		output.NewFormatter(os.Stderr).Error(err.Error())
		os.Exit(1)
	}
}
