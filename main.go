package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"companion/config"
	"companion/gateway"
	"companion/model"
	"companion/ui"
)

const Version = "v0.01.00"

func showError(title, message string) {
	p := tea.NewProgram(
		ui.NewErrorModal(title, message),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}

func main() {
	// A .env next to the binary may carry COMPANION_* overrides; it is optional.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: could not read .env: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		showError("Configuration Error", err.Error())
		os.Exit(1)
	}

	config.InitDebugLog(cfg.DataDir())
	if config.DebugLog != nil {
		config.DebugLog.Printf("Companion %s starting, gateway=%s timeout=%s", Version, cfg.GatewayURL, cfg.Timeout)
	}

	placement, err := model.ParsePlacement(cfg.CreatePlacement)
	if err != nil {
		showError("Configuration Error", err.Error())
		os.Exit(1)
	}

	tokens := config.NewTokenStore()
	if cfg.RememberLogin {
		if err := tokens.Load(cfg.DataDir()); err != nil && config.DebugLog != nil {
			config.DebugLog.Printf("Warning: ignoring saved credentials: %v", err)
		}
	}

	client, err := gateway.New(cfg.GatewayURL, tokens, gateway.WithTimeout(cfg.Timeout))
	if err != nil {
		showError("Gateway Error", err.Error())
		os.Exit(1)
	}

	p := tea.NewProgram(
		ui.NewApp(cfg, client, tokens, placement),
		tea.WithAltScreen(),
	)

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running companion: %v\n", err)
		os.Exit(1)
	}
}
