package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/joho/godotenv"
	"github.com/payos/mandate-engine/pkg/lifecycle"
	dydbstore "github.com/payos/mandate-engine/pkg/storage/dynamodb"
)

var controller *lifecycle.Controller

func init() {
	// Load environment variables for local testing.
	godotenv.Load()

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

	store := dydbstore.New(dbClient, mandatesTable, executionsTable, sessionsTable)

	// The sweep never activates mandates, so no binder or publisher is needed.
	controller = lifecycle.NewController(store, nil, nil, time.Now)
}

// HandleRequest is triggered by an EventBridge Schedule. It expires every
// mandate whose validity window has lapsed.
func HandleRequest(ctx context.Context) error {
	log.Println("Starting expiry sweep...")

	expired, err := controller.ExpireSweep(ctx, time.Now())
	if err != nil {
		log.Printf("ERROR: expiry sweep failed after %d mandates: %v", expired, err)
		return err
	}

	log.Printf("Expiry sweep finished, expired %d mandates", expired)
	return nil
}

func main() {
	lambda.Start(HandleRequest)
}
