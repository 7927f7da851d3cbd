package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/payos/mandate-engine/pkg/authorization"
	"github.com/payos/mandate-engine/pkg/credentials"
	"github.com/payos/mandate-engine/pkg/events"
	mandateshandler "github.com/payos/mandate-engine/pkg/handlers/mandates"
	paymentshandler "github.com/payos/mandate-engine/pkg/handlers/payments"
	sessionshandler "github.com/payos/mandate-engine/pkg/handlers/sessions"
	"github.com/payos/mandate-engine/pkg/lifecycle"
	custommiddleware "github.com/payos/mandate-engine/pkg/middleware"
	"github.com/payos/mandate-engine/pkg/payments"
	"github.com/payos/mandate-engine/pkg/scheduler"
	"github.com/payos/mandate-engine/pkg/storage"
	dydbstore "github.com/payos/mandate-engine/pkg/storage/dynamodb"
	memstore "github.com/payos/mandate-engine/pkg/storage/memory"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	var store interface {
		storage.Storage
		storage.SessionManager
	}
	var sqsScheduler scheduler.ExecutionScheduler

	if os.Getenv("STORAGE_BACKEND") == "memory" {
		// Local development mode: no AWS dependencies.
		store = memstore.New()
	} else {
		cfg, err := config.LoadDefaultConfig(context.TODO())
		if err != nil {
			log.Fatalf("unable to load SDK config, %v", err)
		}

		dbClient := dynamodb.NewFromConfig(cfg)
		mandatesTable := os.Getenv("DYNAMODB_MANDATES_TABLE_NAME")
		executionsTable := os.Getenv("DYNAMODB_EXECUTIONS_TABLE_NAME")
		sessionsTable := os.Getenv("DYNAMODB_SESSIONS_TABLE_NAME")

		if mandatesTable == "" || executionsTable == "" || sessionsTable == "" {
			log.Fatal("One or more DynamoDB table name environment variables are not set")
		}

		store = dydbstore.New(dbClient, mandatesTable, executionsTable, sessionsTable)

		if queueURL := os.Getenv("SQS_SETTLEMENT_QUEUE_URL"); queueURL != "" {
			sqsScheduler = scheduler.NewSQSScheduler(sqs.NewFromConfig(cfg), queueURL)
		}
	}

	// Agent notifications: publish over API Gateway when an endpoint is
	// configured, otherwise stay silent.
	var publisher events.Publisher = &events.NoOpPublisher{}
	if endpoint := os.Getenv("WEBSOCKET_API_ENDPOINT"); endpoint != "" {
		p, err := events.NewPublisher(store, store, endpoint)
		if err != nil {
			log.Fatalf("failed to create publisher: %v", err)
		}
		publisher = p
	}

	// The credential verifier is an external collaborator; without one
	// configured the binder fails closed on every activation.
	var verifier credentials.Verifier
	if verifierURL := os.Getenv("CREDENTIAL_VERIFIER_URL"); verifierURL != "" {
		verifier = credentials.NewHTTPVerifier(&http.Client{Timeout: 10 * time.Second}, verifierURL)
	} else {
		log.Println("CREDENTIAL_VERIFIER_URL not set, rejecting all activations")
		verifier = &credentials.StaticVerifier{Valid: false}
	}

	evaluator := authorization.NewEvaluator(authorization.Config{
		PartialAuthorization: os.Getenv("PARTIAL_AUTHORIZATION") == "true",
	})

	settlementMode := payments.SettlementSync
	if os.Getenv("SETTLEMENT_MODE") == "async" {
		settlementMode = payments.SettlementAsync
		if sqsScheduler == nil {
			log.Fatal("SETTLEMENT_MODE=async requires SQS_SETTLEMENT_QUEUE_URL")
		}
	}

	binder := credentials.NewBinder(verifier)
	controller := lifecycle.NewController(store, binder, publisher, time.Now)
	coordinator := payments.NewCoordinator(store, evaluator, sqsScheduler, publisher, settlementMode, time.Now)

	mandatesHandler := mandateshandler.NewMandatesHandler(controller, store)
	paymentsHandler := paymentshandler.NewPaymentsHandler(coordinator, store)
	sessionsHandler := sessionshandler.NewHandler(store)

	router := chi.NewRouter()
	router.Use(custommiddleware.NewStructuredLogger(logger))

	router.Post("/mandates", mandatesHandler.CreateMandate)
	router.Get("/mandates/{mandateId}", func(w http.ResponseWriter, r *http.Request) {
		mandatesHandler.GetMandateById(w, r, chi.URLParam(r, "mandateId"))
	})
	router.Post("/mandates/{mandateId}/activate", func(w http.ResponseWriter, r *http.Request) {
		mandatesHandler.ActivateMandateById(w, r, chi.URLParam(r, "mandateId"))
	})
	router.Post("/mandates/{mandateId}/suspend", func(w http.ResponseWriter, r *http.Request) {
		mandatesHandler.SuspendMandateById(w, r, chi.URLParam(r, "mandateId"))
	})
	router.Post("/mandates/{mandateId}/resume", func(w http.ResponseWriter, r *http.Request) {
		mandatesHandler.ResumeMandateById(w, r, chi.URLParam(r, "mandateId"))
	})
	router.Post("/mandates/{mandateId}/revoke", func(w http.ResponseWriter, r *http.Request) {
		mandatesHandler.RevokeMandateById(w, r, chi.URLParam(r, "mandateId"))
	})
	router.Post("/mandates/{mandateId}/complete", func(w http.ResponseWriter, r *http.Request) {
		mandatesHandler.CompleteMandateById(w, r, chi.URLParam(r, "mandateId"))
	})
	router.Get("/payers/{payerId}/mandates", func(w http.ResponseWriter, r *http.Request) {
		mandatesHandler.ListMandatesByPayerId(w, r, chi.URLParam(r, "payerId"))
	})
	router.Post("/mandates/{mandateId}/payments", func(w http.ResponseWriter, r *http.Request) {
		paymentsHandler.RequestPayment(w, r, chi.URLParam(r, "mandateId"))
	})
	router.Get("/mandates/{mandateId}/executions", func(w http.ResponseWriter, r *http.Request) {
		paymentsHandler.ListExecutionsByMandateId(w, r, chi.URLParam(r, "mandateId"))
	})
	router.Post("/mandates/{mandateId}/executions/{executionId}/confirm", func(w http.ResponseWriter, r *http.Request) {
		paymentsHandler.ConfirmExecutionById(w, r, chi.URLParam(r, "mandateId"), chi.URLParam(r, "executionId"))
	})
	router.Post("/internal/expire-sweep", mandatesHandler.ExpireSweep)
	router.Get("/ws", sessionsHandler.ServeHTTP)

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080" // Default port if not specified
	}

	log.Printf("Starting server on port %s", port)

	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
