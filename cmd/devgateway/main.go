// Command devgateway serves the chat gateway API from a local SQLite database
// so the client can be run without the real backend. Replies echo the user's
// message unless COMPANION_REPLY_PROVIDER selects a model backend.
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

	"github.com/joho/godotenv"

	"companion/config"
	"companion/gateway/gatewaytest"
	"companion/provider"
	"companion/storage"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not read .env: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	dataDir := os.Getenv("COMPANION_DEVGATEWAY_DIR")
	if dataDir == "" {
		dataDir = config.GetDefaultDataDir()
	}
	dataDir = config.ExpandPath(dataDir)
	if err := config.EnsureDir(dataDir); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	db, err := storage.OpenChatDB(dataDir)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	logger := log.New(os.Stdout, "", log.LstdFlags)
	opts := []gatewaytest.GatewayOption{gatewaytest.WithRequestLog(logger)}

	reply, err := replyFromEnv(logger)
	if err != nil {
		log.Fatalf("Failed to configure replies: %v", err)
	}
	if reply != nil {
		opts = append(opts, gatewaytest.WithReply(reply))
	}
	gw := gatewaytest.NewGateway(db, opts...)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           gw,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		logger.Printf("Shutting down")
		srv.Close()
	}()

	logger.Printf("Dev gateway listening on http://localhost:%s/api (data: %s)", port, dataDir)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

// replyFromEnv builds a provider-backed ReplyFunc, or returns nil to keep the
// echo replies.
func replyFromEnv(logger *log.Logger) (gatewaytest.ReplyFunc, error) {
	cfg, err := provider.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	if !cfg.Enabled() {
		logger.Printf("Replies: echo (set COMPANION_REPLY_PROVIDER to use a model)")
		return nil, nil
	}

	p, err := provider.NewProvider(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		logger.Printf("Warning: %s is not reachable yet: %v", p.Name(), err)
	}
	logger.Printf("Replies: %s", p.Name())

	return providerReply(provider.NewResponder(p)), nil
}

func providerReply(r *provider.Responder) gatewaytest.ReplyFunc {
	return func(ctx context.Context, history []storage.MessageRow, content string) (string, error) {
		return r.Reply(ctx, historyTurns(history), content)
	}
}

func historyTurns(rows []storage.MessageRow) []provider.Turn {
	turns := make([]provider.Turn, len(rows))
	for i, row := range rows {
		role := provider.RoleUser
		if row.IsAI {
			role = provider.RoleAssistant
		}
		turns[i] = provider.Turn{Role: role, Content: row.Content}
	}
	return turns
}
