// ABOUTME: Main entry point for the rpcline JSON-RPC server
// ABOUTME: Loads configuration, opens the message log and runs the TCP, WebSocket and management servers

package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/harper/rpcline/internal/config"
	"github.com/harper/rpcline/internal/db"
	rpcerrors "github.com/harper/rpcline/internal/errors"
	rpchttp "github.com/harper/rpcline/internal/http"
	"github.com/harper/rpcline/internal/jsonrpc"
	"github.com/harper/rpcline/internal/logger"
	"github.com/harper/rpcline/internal/management"
	"github.com/harper/rpcline/internal/server"
	"github.com/harper/rpcline/internal/session"
	"github.com/harper/rpcline/internal/websocket"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: $XDG_CONFIG_HOME/rpcline/config.yaml if present)")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	printConfig := flag.Bool("print-config", false, "print the effective configuration and exit")
	stdio := flag.Bool("stdio", false, "serve a single session on stdin/stdout instead of listening")
	flag.Parse()

	if err := run(*configPath, *verbose, *printConfig, *stdio); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func run(configPath string, verbose, printConfig, stdio bool) error {
	// A missing .env is fine; everything has a default.
	_ = godotenv.Load()

	cfg, err := config.LoadDefault(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.SetVerbose(verbose || cfg.Log.Verbose)

	if printConfig {
		out, err := cfg.YAML()
		if err != nil {
			return fmt.Errorf("failed to render config: %w", err)
		}
		_, err = os.Stdout.Write(out)
		return err
	}

	var database *db.DB
	if cfg.Database.Enabled {
		database, err = db.Open(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open message log: %w", err)
		}
		defer database.Close()
	}

	dispatcher := newDispatcher(cfg)
	sessionMgr := session.NewManager(dispatcher, database)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if stdio {
		// Logs go to stderr, so stdout carries only responses.
		reader := session.NewScannerReader(os.Stdin, cfg.Server.MaxLineBytes)
		return sessionMgr.Serve(ctx, "stdio", "", reader, session.NewStreamWriter(os.Stdout))
	}

	ls, err := listen(cfg)
	if err != nil {
		return err
	}
	return serve(ctx, cfg, ls, dispatcher, sessionMgr, database)
}

func newDispatcher(cfg *config.Config) *jsonrpc.Dispatcher {
	opts := []jsonrpc.Option{jsonrpc.WithMaxDepth(cfg.RPC.MaxDepth)}
	if cfg.RPC.ErrorDetails {
		opts = append(opts, jsonrpc.WithErrorData(rpcerrors.Data))
	}
	return jsonrpc.NewDispatcher(opts...)
}

// listeners holds the bound sockets; ws and mgmt are nil when disabled.
type listeners struct {
	tcp  net.Listener
	ws   net.Listener
	mgmt net.Listener
}

func listen(cfg *config.Config) (*listeners, error) {
	var ls listeners
	var err error

	if ls.tcp, err = net.Listen("tcp", cfg.ServerAddr()); err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.ServerAddr(), err)
	}
	if cfg.WebSocket.Enabled {
		if ls.ws, err = net.Listen("tcp", cfg.WebSocketAddr()); err != nil {
			ls.close()
			return nil, fmt.Errorf("failed to listen on %s: %w", cfg.WebSocketAddr(), err)
		}
	}
	if cfg.Management.Enabled {
		if ls.mgmt, err = net.Listen("tcp", cfg.ManagementAddr()); err != nil {
			ls.close()
			return nil, fmt.Errorf("failed to listen on %s: %w", cfg.ManagementAddr(), err)
		}
	}
	return &ls, nil
}

func (ls *listeners) close() {
	for _, l := range []net.Listener{ls.tcp, ls.ws, ls.mgmt} {
		if l != nil {
			_ = l.Close()
		}
	}
}

// serve runs every enabled server until ctx is done or one of them fails.
func serve(ctx context.Context, cfg *config.Config, ls *listeners, dispatcher *jsonrpc.Dispatcher, sessionMgr *session.Manager, database *db.DB) error {
	g, ctx := errgroup.WithContext(ctx)

	tcp := server.NewServer(server.Options{
		MaxConnections: cfg.Server.MaxConnections,
		MaxLineBytes:   cfg.Server.MaxLineBytes,
	}, sessionMgr)
	g.Go(func() error {
		return tcp.Serve(ctx, ls.tcp)
	})

	if ls.ws != nil {
		var fallback http.Handler
		if cfg.WebSocket.AllowPost {
			fallback = rpchttp.NewServer(sessionMgr, cfg.Server.MaxLineBytes)
		}
		mux := http.NewServeMux()
		mux.Handle(cfg.WebSocket.Path, websocket.NewServer(sessionMgr, cfg.Server.MaxLineBytes, fallback,
			websocket.WithAllowedOrigins(cfg.WebSocket.AllowedOrigins)))
		logger.Info("WebSocket server listening on %s%s", ls.ws.Addr(), cfg.WebSocket.Path)
		g.Go(func() error {
			return server.ServeHTTP(ctx, ls.ws, mux)
		})
	}

	if ls.mgmt != nil {
		mgmt := management.NewServer(cfg, dispatcher, sessionMgr, database)
		logger.Info("Management API listening on %s", ls.mgmt.Addr())
		g.Go(func() error {
			return server.ServeHTTP(ctx, ls.mgmt, mgmt)
		})
	}

	err := g.Wait()
	logger.Info("shut down after %d connections", sessionMgr.TotalCount())
	return err
}
