package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"
	"github.com/payos/mandate-engine/pkg/authorization"
	"github.com/payos/mandate-engine/pkg/payments"
	"github.com/payos/mandate-engine/pkg/scheduler"
	dydbstore "github.com/payos/mandate-engine/pkg/storage/dynamodb"
)

var coordinator *payments.Coordinator

// Executions pending longer than this are assumed to have missed the
// settlement queue and are re-enqueued.
const stuckExecutionThreshold = 20 * time.Minute

func init() {
	// Load environment variables for local testing.
	godotenv.Load()

	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	queueURL := os.Getenv("SQS_SETTLEMENT_QUEUE_URL")
	if queueURL == "" {
		log.Fatal("SQS_SETTLEMENT_QUEUE_URL environment variable not set")
	}
	sqsScheduler := scheduler.NewSQSScheduler(sqs.NewFromConfig(cfg), queueURL)

	store := dydbstore.New(
		dynamodb.NewFromConfig(cfg),
		os.Getenv("DYNAMODB_MANDATES_TABLE_NAME"),
		os.Getenv("DYNAMODB_EXECUTIONS_TABLE_NAME"),
		os.Getenv("DYNAMODB_SESSIONS_TABLE_NAME"),
	)

	// Only the requeue sweep runs here; the evaluator is not exercised.
	coordinator = payments.NewCoordinator(store, authorization.NewEvaluator(authorization.Config{}), sqsScheduler, nil, payments.SettlementAsync, time.Now)
}

// HandleRequest is triggered by an EventBridge Schedule.
func HandleRequest(ctx context.Context) error {
	log.Println("Starting reconciliation of stuck pending executions...")

	cutoff := time.Now().Add(-stuckExecutionThreshold)
	requeued, err := coordinator.RequeueStuckExecutions(ctx, cutoff)
	if err != nil {
		log.Printf("ERROR: failed to requeue stuck executions: %v", err)
		return err
	}

	log.Printf("Reconciliation finished; re-enqueued %d executions", requeued)
	return nil
}

func main() {
	lambda.Start(HandleRequest)
}
