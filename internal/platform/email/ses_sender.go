// Package email delivers templated notification emails through Amazon SES.
package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/cenkalti/backoff/v4"

	"github.com/course-commerce-payments/internal/config"
)

// SESClient is the subset of the SES API used for delivery
type SESClient interface {
	SendTemplatedEmail(ctx context.Context, params *ses.SendTemplatedEmailInput, optFns ...func(*ses.Options)) (*ses.SendTemplatedEmailOutput, error)
}

// TemplatedEmail is one rendered-by-provider email
type TemplatedEmail struct {
	To       string
	Template string
	Data     map[string]interface{}
}

// SESSender sends templated emails, retrying transient failures with exponential backoff
type SESSender struct {
	client           SESClient
	source           string
	configurationSet string
	maxElapsed       time.Duration
	initialInterval  time.Duration
	logger           *slog.Logger
}

// NewSESClient builds an SES client from the default AWS credential chain
func NewSESClient(ctx context.Context, cfg *config.EmailConfig) (*ses.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return ses.NewFromConfig(awsCfg), nil
}

// NewSESSender creates a sender bound to the configured source address
func NewSESSender(logger *slog.Logger, client SESClient, cfg *config.EmailConfig) *SESSender {
	return &SESSender{
		client:           client,
		source:           cfg.SourceAddress,
		configurationSet: cfg.ConfigurationSet,
		maxElapsed:       cfg.MaxElapsed,
		initialInterval:  500 * time.Millisecond,
		logger:           logger,
	}
}

// Send delivers the email and returns the provider message id
func (s *SESSender) Send(ctx context.Context, msg TemplatedEmail) (string, error) {
	data, err := json.Marshal(msg.Data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal template data: %w", err)
	}

	input := &ses.SendTemplatedEmailInput{
		Destination: &sestypes.Destination{
			ToAddresses: []string{msg.To},
		},
		Source:       aws.String(s.source),
		Template:     aws.String(msg.Template),
		TemplateData: aws.String(string(data)),
	}
	if s.configurationSet != "" {
		input.ConfigurationSetName = aws.String(s.configurationSet)
	}

	var messageID string
	operation := func() error {
		out, err := s.client.SendTemplatedEmail(ctx, input)
		if err != nil {
			if isPermanent(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		messageID = aws.ToString(out.MessageId)
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.initialInterval
	policy.MaxElapsedTime = s.maxElapsed

	notify := func(err error, wait time.Duration) {
		s.logger.Warn("Email send failed, retrying",
			"template", msg.Template,
			"retry_in", wait,
			"error", err,
		)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify); err != nil {
		return "", fmt.Errorf("failed to send templated email: %w", err)
	}

	return messageID, nil
}

// isPermanent reports SES rejections that will fail the same way on retry
func isPermanent(err error) bool {
	var rejected *sestypes.MessageRejected
	var missingTemplate *sestypes.TemplateDoesNotExistException
	var unverified *sestypes.MailFromDomainNotVerifiedException
	return errors.As(err, &rejected) || errors.As(err, &missingTemplate) || errors.As(err, &unverified)
}
