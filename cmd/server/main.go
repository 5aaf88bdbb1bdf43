// Package main implements the entry point for the taskhub server, which
// serves the task-tracking REST API and the realtime websocket surface
// that pushes task events and notifications to connected clients.
package main

import (
	"context"
	"log"
)

// main initializes configuration, logging, the database, and all service
// dependencies, then runs the HTTP server until a shutdown signal arrives.
func main() {
	app, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.startHTTPServer(context.Background(), app.setupRouter()); err != nil {
		app.logger.Error("Server exited with error", "error", err)
		app.cleanup()
		log.Fatalf("Server error: %v", err)
	}
}
