package main

import (
	"log"

	"github.com/mark3labs/mcp-go/server"

	"bountylink-backend/actions"
	"bountylink-backend/config"
	"bountylink-backend/ledger"
	"bountylink-backend/mcp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ledgerClient := ledger.NewClient(cfg.LedgerAPIBase, cfg.ClientTimeout)
	composer := actions.NewComposer(cfg.PublicBaseURL, cfg.AppBaseURL, cfg.ActionIconURL)

	mcpServer := mcp.NewMCPServer(ledgerClient, composer)

	log.Println("Starting MCP server on stdio")
	if err := server.ServeStdio(mcpServer.GetMCPServer()); err != nil {
		log.Fatalf("mcp server: %v", err)
	}
}
