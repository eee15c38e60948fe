package main

import (
	"embed"
	"log"
	"os"

	"whisper-desk/internal/bootstrap"
	"whisper-desk/internal/worker"
)

//go:embed frontend/index.html
var appAssets embed.FS

func main() {
	// Worker invocations re-execute this binary; they must never start
	// the GUI.
	if code, isWorker := worker.MaybeRun(os.Args); isWorker {
		os.Exit(code)
	}

	app, err := bootstrap.NewWithAssets(appAssets)
	if err != nil {
		log.Fatalf("bootstrap app: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Fatalf("run app: %v", err)
	}
}
