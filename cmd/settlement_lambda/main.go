package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/joho/godotenv"
	"github.com/payos/mandate-engine/pkg/authorization"
	"github.com/payos/mandate-engine/pkg/executor"
	"github.com/payos/mandate-engine/pkg/models"
	"github.com/payos/mandate-engine/pkg/payments"
	dydbstore "github.com/payos/mandate-engine/pkg/storage/dynamodb"
)

var coordinator *payments.Coordinator
var executionClient executor.Client

func init() {
	// Load environment variables from .env file (useful for local testing).
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize dependencies once.
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	dbClient := dynamodb.NewFromConfig(cfg)
	mandatesTable := os.Getenv("DYNAMODB_MANDATES_TABLE_NAME")
	executionsTable := os.Getenv("DYNAMODB_EXECUTIONS_TABLE_NAME")
	sessionsTable := os.Getenv("DYNAMODB_SESSIONS_TABLE_NAME")

	if mandatesTable == "" || executionsTable == "" {
		log.Fatal("One or more DynamoDB table name environment variables are not set")
	}

	executionServiceURL := os.Getenv("EXECUTION_SERVICE_URL")
	if executionServiceURL == "" {
		log.Fatal("EXECUTION_SERVICE_URL environment variable not set")
	}
	executionClient = executor.NewHTTPClient(&http.Client{Timeout: 30 * time.Second}, executionServiceURL)

	store := dydbstore.New(dbClient, mandatesTable, executionsTable, sessionsTable)

	// This lambda only confirms already-committed executions; the evaluator
	// and scheduler are not exercised here.
	coordinator = payments.NewCoordinator(store, authorization.NewEvaluator(authorization.Config{}), nil, nil, payments.SettlementAsync, time.Now)
}

// HandleRequest processes SQS messages: each carries a pending execution to
// run against the external Payment Execution Service and then finalize.
func HandleRequest(ctx context.Context, sqsEvent events.SQSEvent) error {
	for _, message := range sqsEvent.Records {
		log.Printf("Processing message %s", message.MessageId)

		var ex models.Execution
		if err := json.Unmarshal([]byte(message.Body), &ex); err != nil {
			log.Printf("ERROR: failed to unmarshal execution from SQS message %s: %v", message.MessageId, err)
			// Returning an error will cause SQS to retry the message, which is appropriate here.
			return err
		}

		log.Printf("Attempting to settle execution %s for mandate %s", ex.Id, ex.MandateId)

		settled, err := executionClient.Execute(ctx, &ex)
		if err != nil {
			log.Printf("ERROR: execution service call failed for execution %s: %v", ex.Id, err)
			// In a production system, persistent failures would be sent to a DLQ.
			return err
		}

		if _, err := coordinator.ConfirmExecution(ctx, ex.MandateId, ex.Id, settled); err != nil {
			log.Printf("ERROR: failed to confirm execution %s: %v", ex.Id, err)
			return err
		}

		log.Printf("Finalized execution %s (settled=%t)", ex.Id, settled)
	}

	return nil
}

func main() {
	lambda.Start(HandleRequest)
}
