package main

import (
	"log"
	"os"

	"whisper-desk/internal/bootstrap"
	"whisper-desk/internal/worker"
)

func main() {
	if code, isWorker := worker.MaybeRun(os.Args); isWorker {
		os.Exit(code)
	}

	app, err := bootstrap.New()
	if err != nil {
		log.Fatalf("bootstrap app: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Fatalf("run app: %v", err)
	}
}
