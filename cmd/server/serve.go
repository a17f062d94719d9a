package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	dbpkg "todos/backend/internal/db"
	httpx "todos/backend/internal/http"
	"todos/backend/internal/todo"
)

const shutdownTimeout = 5 * time.Second

func runServe(ctx context.Context) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	gin.SetMode(cfg.GinMode)

	pool, err := prepareDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()
	log.Info("database setup complete")

	// A failing diagnostic is reported but does not stop the server.
	if n, err := dbpkg.Diagnose(ctx, pool); err != nil {
		log.Error("test query failed", "error", err)
	} else {
		log.Info("test query successful", "result", n)
	}

	srv := httpx.NewServer(todo.NewStore(pool), httpx.Options{
		Log:        log,
		JWTSecret:  cfg.JWTSecret,
		CORSMaxAge: cfg.CORSMaxAge,
	})
	if cfg.AuthEnabled() {
		log.Info("bearer authentication enabled for /todos")
	}

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		log.Error("bind failed", "addr", cfg.Addr(), "error", err)
		return err
	}
	hs := &http.Server{Handler: srv.R, ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", ln.Addr().String())
		errc <- hs.Serve(ln)
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
		return err
	}
	return nil
}
