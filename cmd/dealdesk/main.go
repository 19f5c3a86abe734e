package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/k2cf/dealdesk/internal/api"
	"github.com/k2cf/dealdesk/internal/auth"
	"github.com/k2cf/dealdesk/internal/common"
	"github.com/k2cf/dealdesk/internal/intake"
	"github.com/k2cf/dealdesk/internal/llm"
	"github.com/k2cf/dealdesk/internal/store"
)

func main() {
	logger := common.Logger()

	if err := godotenv.Load(); err != nil {
		logger.Warn("dealdesk: .env file not loaded", "error", err)
	} else {
		logger.Info("dealdesk: environment loaded from .env")
	}

	addr := flag.String("addr", ":8080", "listen address")
	dbPath := flag.String("db", defaultDBPath(), "path to the submissions SQLite database")
	flag.Parse()

	logger.Info("dealdesk: startup initiated", "addr", *addr, "db", *dbPath)

	catalog, err := intake.LoadCatalog()
	if err != nil {
		logger.Error("dealdesk: catalog load failed", "error", err)
		fmt.Println("catalog error:", err)
		os.Exit(1)
	}
	logger.Info("dealdesk: question catalog loaded", "questions", catalog.Len())

	st, err := store.Open(*dbPath)
	if err != nil {
		logger.Error("dealdesk: store initialization failed", "error", err)
		fmt.Println("store error:", err)
		os.Exit(1)
	}
	defer st.Close()

	provider := llm.NewProvider()
	logger.Info("dealdesk: llm provider ready", "provider", provider.Name())

	identity := auth.NewStaticTokens()

	server, err := api.NewServer(st, identity, catalog, llm.NewService(provider))
	if err != nil {
		logger.Error("dealdesk: server construction failed", "error", err)
		fmt.Println("server error:", err)
		os.Exit(1)
	}

	logger.Info("dealdesk: server listening", "addr", *addr, "health", "/healthz")
	fmt.Printf("Serving on %s\n", *addr)
	reachable := *addr
	if strings.HasPrefix(reachable, ":") {
		reachable = "localhost" + reachable
	}
	logger.Info("dealdesk: verify reachability", "suggestion", fmt.Sprintf("curl http://%s/healthz", reachable))
	if err := http.ListenAndServe(*addr, server); err != nil {
		logger.Error("dealdesk: server stopped", "error", err)
		fmt.Println("server stopped:", err)
	}
}

func defaultDBPath() string {
	if env := strings.TrimSpace(os.Getenv("DEALDESK_DB")); env != "" {
		return env
	}
	return filepath.Join("data", "dealdesk.db")
}
