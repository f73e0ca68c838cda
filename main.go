package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vrsandeep/podcatch/internal/api"
	"github.com/vrsandeep/podcatch/internal/auth"
	"github.com/vrsandeep/podcatch/internal/core"
	"github.com/vrsandeep/podcatch/internal/downloader"
	"github.com/vrsandeep/podcatch/internal/jobs"
	"github.com/vrsandeep/podcatch/internal/models"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize the core application components
	app, err := core.New()
	if err != nil {
		log.Fatalf("Fatal error during application setup: %v", err)
	}
	defer app.Close()
	app.Version = version

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- First User Provisioning ---
	st := app.Store()
	userCount, err := st.CountUsers(ctx)
	if err != nil {
		log.Fatalf("Could not check user count: %v", err)
	}
	if userCount == 0 {
		log.Println("No users found. Creating default admin account.")
		admin, err := st.CreateUser(ctx, "admin", models.RoleAdmin)
		if err != nil {
			log.Fatalf("Could not create default admin user: %v", err)
		}
		key, err := auth.IssueAPIKey(ctx, st, admin.ID)
		if err != nil {
			log.Fatalf("Could not create API key for admin user: %v", err)
		}
		log.Println("==================================================")
		log.Println("Default admin user created.")
		log.Printf("Username: admin")
		log.Printf("API key: %s", key)
		log.Println("The key is shown only once. Store it somewhere safe.")
		log.Println("==================================================")
	}

	go app.WsHub().Run()

	// Downloads have no overall deadline, so the pool gets its own client.
	pool := downloader.NewPool(st, app.WsHub(), app.Config(), nil)
	pool.Start(ctx)

	if scheduler := jobs.StartJobs(app); scheduler != nil {
		defer scheduler.Stop()
	}

	// Setup the API server
	server := api.NewServer(app)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.Config().Port),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// --- Graceful Shutdown ---
	go func() {
		log.Printf("Starting web server on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Could not start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
