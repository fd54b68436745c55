package main

import (
	"context"
	"fmt"
	"os"

	"gitlab.com/timkado/api/daisi-conn-service/internal/bootstrap"
	"gitlab.com/timkado/api/daisi-conn-service/pkg/contextkeys"
)

func main() {
	// Root context for the whole application lifetime.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = context.WithValue(ctx, contextkeys.RequestIDKey, "app-main")

	// Initialize the application using the Wire-generated injector.
	app, cleanup, err := bootstrap.InitializeApp(ctx)
	if err != nil {
		// Basic print: the structured logger is not available if bootstrap failed.
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := app.Run(ctx); err != nil {
		fmt.Printf("Application run failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Application exited gracefully.")
}
