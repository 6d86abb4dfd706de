package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Halwren/roomrelay/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	fmt.Println("Starting room relay server...")

	// Load local .env (dev only)
	_ = godotenv.Load()

	config := server.NewConfigFromEnv()
	server.SetConfig(config)

	registry := server.NewRegistry()
	router := server.NewRouter(registry)
	handlers := server.NewHandlers(router, registry)

	mux := server.SetupRoutes(handlers)
	httpServer := server.CreateServer(config.Port, mux)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	case sig := <-stop:
		log.Printf("Received signal %s, shutting down", sig)
	}

	if err := server.ShutdownServer(httpServer, shutdownTimeout); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	if err := router.Shutdown(shutdownTimeout); err != nil {
		log.Printf("Router shutdown error: %v", err)
	}
}
