package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/4cecoder/blobarena/config"
	"github.com/4cecoder/blobarena/handlers"
	"github.com/4cecoder/blobarena/store"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
)

func main() {
	env := config.LoadEnv()
	cfg := config.LoadGame(env.ConfigPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := store.New(store.NewFilePersister(env.DataFile))
	storeDone := make(chan struct{})
	go func() {
		st.Run(ctx, cfg.FlushEvery(), cfg.ReapAfter())
		close(storeDone)
	}()

	srv := handlers.NewServer(st, cfg)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", srv.HandleRoot)
	r.Get("/ws", srv.HandleWebSocket)
	r.Get("/config", srv.HandleConfig)
	r.Get("/players", srv.HandlePlayers)

	// Serve static files
	fileServer := http.FileServer(http.Dir("./static"))
	r.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	httpServer := &http.Server{Addr: ":" + env.Port, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Println(err)
		}
	}()

	log.Printf("Server started on :%s", env.Port)
	err := httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
		return
	}

	stop()
	<-storeDone
	log.Println("Server stopped")
}
