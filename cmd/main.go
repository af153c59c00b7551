package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/inkwell-cms/inkwell-backend/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to start: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	a.Start()
	a.Log.Info("Content engine running")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	a.Log.Info("Shutting down...")
}
