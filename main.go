package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bountylink-backend/actions"
	"bountylink-backend/chain"
	"bountylink-backend/config"
	"bountylink-backend/handlers"
	"bountylink-backend/identity"
	"bountylink-backend/ledger"
	"bountylink-backend/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	mux := http.NewServeMux()

	handler := middleware.Recovery(
		middleware.Logging(
			middleware.Metrics(
				middleware.CORS(
					middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst)(
						middleware.QueryHygiene(
							middleware.Timeout(cfg.RequestTimeout)(
								setupRoutes(mux, cfg),
							),
						),
					),
				),
			),
		),
	)

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("Action surface listening on %s", addr)
	log.Printf("Task actions at %s/actions/tasks/{id}", cfg.PublicBaseURL)
	log.Printf("Service actions at %s/actions/services/{id}", cfg.PublicBaseURL)

	log.Fatal(http.ListenAndServe(addr, handler))
}

func setupRoutes(mux *http.ServeMux, cfg config.Config) http.Handler {
	ledgerClient := ledger.NewClient(cfg.LedgerAPIBase, cfg.ClientTimeout)
	bridge := identity.NewBridge(cfg.IdentityAPIBase, cfg.ClientTimeout)
	verifier := identity.NewVerifier(bridge)
	builder := chain.NewTxBuilder(chain.NewRPCAnchorSource(cfg.RPCEndpoint))
	composer := actions.NewComposer(cfg.PublicBaseURL, cfg.AppBaseURL, cfg.ActionIconURL)

	actionsHandler := handlers.NewActionsHandler(ledgerClient, builder, verifier, composer)
	healthHandler := handlers.NewHealthHandler()

	mux.HandleFunc("/actions/tasks/", actionsHandler.Tasks)
	mux.HandleFunc("/actions/services/", actionsHandler.Services)
	mux.HandleFunc("/api/health", healthHandler.HandleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}
