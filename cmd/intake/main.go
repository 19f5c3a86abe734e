package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/k2cf/dealdesk/internal/common"
	"github.com/k2cf/dealdesk/internal/intake"
	"github.com/k2cf/dealdesk/internal/llm"
	"github.com/k2cf/dealdesk/internal/session"
	"github.com/k2cf/dealdesk/internal/store"
	"github.com/k2cf/dealdesk/internal/tui"
)

// Terminal client: drives the same session orchestrator as the HTTP API, but
// in-process for a single local user.
func main() {
	logger := common.Logger()

	if err := godotenv.Load(); err != nil {
		logger.Warn("intake: .env file not loaded", "error", err)
	}

	dbPath := flag.String("db", defaultDBPath(), "path to the submissions SQLite database")
	user := flag.String("user", "local", "user id to record submissions under")
	flag.Parse()

	catalog, err := intake.LoadCatalog()
	if err != nil {
		fmt.Println("catalog error:", err)
		os.Exit(1)
	}

	st, err := store.Open(*dbPath)
	if err != nil {
		fmt.Println("store error:", err)
		os.Exit(1)
	}
	defer st.Close()

	provider := llm.NewProvider()
	logger.Info("intake: llm provider ready", "provider", provider.Name())

	orch := session.New(catalog, st, llm.NewService(provider), *user)
	app := tui.NewApp(orch)

	if _, err := tea.NewProgram(app, tea.WithAltScreen()).Run(); err != nil {
		fmt.Println("tui error:", err)
		os.Exit(1)
	}
}

func defaultDBPath() string {
	if env := strings.TrimSpace(os.Getenv("DEALDESK_DB")); env != "" {
		return env
	}
	return filepath.Join("data", "dealdesk.db")
}
