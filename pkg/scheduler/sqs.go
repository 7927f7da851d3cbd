package scheduler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/payos/mandate-engine/pkg/models"
)

// SQSScheduler implements the ExecutionScheduler interface using AWS SQS.
type SQSScheduler struct {
	Client   *sqs.Client
	QueueURL string
}

// NewSQSScheduler creates a new SQSScheduler.
func NewSQSScheduler(client *sqs.Client, queueURL string) *SQSScheduler {
	return &SQSScheduler{
		Client:   client,
		QueueURL: queueURL,
	}
}

// Make sure we conform to the interface
var _ ExecutionScheduler = (*SQSScheduler)(nil)

// EnqueueExecution sends the execution to the settlement queue consumed by
// the Payment Execution Service worker.
func (s *SQSScheduler) EnqueueExecution(ctx context.Context, ex *models.Execution) error {
	body, err := json.Marshal(ex)
	if err != nil {
		return fmt.Errorf("failed to marshal execution for SQS: %w", err)
	}

	_, err = s.Client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.QueueURL),
		MessageBody: aws.String(string(body)),
	})

	if err != nil {
		return fmt.Errorf("failed to send message to SQS: %w", err)
	}

	return nil
}
