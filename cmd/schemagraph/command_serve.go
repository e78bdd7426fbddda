package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"

	"github.com/shibukawa/schemagraph/engine"
	"github.com/shibukawa/schemagraph/graphstore"
	"github.com/shibukawa/schemagraph/server"
)

const shutdownTimeout = 5 * time.Second

// ServeCmd represents the serve command
type ServeCmd struct {
	Addr    string `help:"Listen address (overrides server.addr)"`
	NoCORS  bool   `help:"Disable permissive CORS headers"`
	NoWatch bool   `help:"Do not reload when the graph file changes"`
}

func (cmd *ServeCmd) Run(ctx *Context) error {
	config, err := ctx.loadConfig()
	if err != nil {
		return err
	}

	addr := config.Server.Addr
	if cmd.Addr != "" {
		addr = cmd.Addr
	}

	graphPath := ctx.graphPath(config)
	srv := server.New(nil, server.WithCORS(config.Server.CORSEnabled() && !cmd.NoCORS))

	runCtx, stop := ctx.signalContext()
	defer stop()

	loader := &graphLoader{path: graphPath, server: srv}
	defer loader.Close()

	if err := loader.Reload(runCtx); err != nil {
		return err
	}

	if srv.Engine() == nil {
		color.Yellow("Graph %s does not exist yet; API answers 404 until a scan creates it", graphPath)
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen and serve: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return httpServer.Shutdown(shutdownCtx)
	})

	if config.Server.WatchEnabled() && !cmd.NoWatch {
		watcher := &server.Watcher{
			Path:     graphPath,
			OnChange: loader.Reload,
			Logf:     log.Printf,
		}
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}

	if !ctx.Quiet {
		color.Green("schemagraph API listening on %s", addr)
	}

	return g.Wait()
}

// graphLoader opens a fresh store and engine whenever the graph file
// changes, so a file replaced by rename is picked up too.
type graphLoader struct {
	path   string
	server *server.Server

	mu    sync.Mutex
	store *graphstore.Store
}

func (l *graphLoader) Reload(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Keep serving the current graph while the file is missing
	if _, err := os.Stat(l.path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	store, err := graphstore.Open(ctx, l.path)
	if err != nil {
		return err
	}

	e, err := engine.New(ctx, store)
	if err != nil {
		store.Close()
		return err
	}

	previous := l.store
	l.store = store
	l.server.SetEngine(e)

	if previous != nil {
		previous.Close()
	}

	return nil
}

func (l *graphLoader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.store != nil {
		l.store.Close()
		l.store = nil
	}
}
