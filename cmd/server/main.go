// Command server runs the BugSheriff API.
package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/bugsheriff/internal/server"
	"github.com/dmitrijs2005/bugsheriff/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("bugsheriff: %v", err)
	}

	app.Run(ctx)

}
