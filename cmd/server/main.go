// Package main implements the entry point for the Provix API server,
// which sells credits via PIX payments and spends them on batched
// account provisioning tasks.
package main

import (
	"context"
	"log"
)

// main wires configuration, logging, the database, the service layer, the
// background task runner, and the HTTP server, then blocks until shutdown.
func main() {
	app, err := newApplication()
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}
	defer app.cleanup()

	if err := app.run(context.Background()); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
