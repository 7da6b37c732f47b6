package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"cipherchat/internal/client/cli"
	"cipherchat/internal/client/config"
)

func main() {

	_ = godotenv.Load()

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := cli.NewApp(cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	if err := app.Run(ctx); err != nil {
		log.Printf("%v", err)
	}

}
