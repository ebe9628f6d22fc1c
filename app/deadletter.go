package app

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog/log"
)

// FailedEvent records a webhook delivery whose reconciliation failed after
// the signature had already verified. Operators replay these from the queue;
// the provider is never asked to redeliver.
type FailedEvent struct {
	EventID    string    `json:"eventId"`
	EventType  string    `json:"eventType"`
	Error      string    `json:"error"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// DeadLetter publishes failed reconciliations for later replay.
type DeadLetter interface {
	Publish(ctx context.Context, event FailedEvent)
}

type sqsDeadLetter struct {
	queueURL string
	client   *sqs.Client
}

// NewSQSDeadLetter builds an SQS-backed dead-letter publisher.
func NewSQSDeadLetter(ctx context.Context, queueURL string) (DeadLetter, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return &sqsDeadLetter{
		queueURL: queueURL,
		client:   sqs.NewFromConfig(awsCfg),
	}, nil
}

// Publish is best-effort: a queue failure is logged, never propagated, since
// the webhook has already been acknowledged.
func (d *sqsDeadLetter) Publish(ctx context.Context, event FailedEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("event_id", event.EventID).Msg("deadletter: marshal failed")
		return
	}

	_, err = d.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    &d.queueURL,
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		log.Error().Err(err).Str("event_id", event.EventID).Msg("deadletter: send failed")
	}
}
