package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-dealdesk/internal/common"
	"github.com/noah-isme/backend-dealdesk/internal/deal"
	"github.com/noah-isme/backend-dealdesk/internal/obs"
)

// TypeQuoteEmail is the asynq task type for quote proposal emails.
const TypeQuoteEmail = "quote:email"

// EmailTaskPayload is the serialized task body.
type EmailTaskPayload struct {
	DealID   string `json:"dealId"`
	To       string `json:"to"`
	Currency string `json:"currency"`
}

// NewEmailTask builds the asynq task for sending a quote proposal.
func NewEmailTask(dealID, to, currency string) (*asynq.Task, error) {
	payload, err := json.Marshal(EmailTaskPayload{DealID: dealID, To: to, Currency: currency})
	if err != nil {
		return nil, fmt.Errorf("quote: marshal email task: %w", err)
	}
	return asynq.NewTask(TypeQuoteEmail, payload,
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
	), nil
}

// EmailProcessor renders proposals from stored deals and hands them to the
// email collaborator. It reads the deal from Redis directly so the worker
// binary needs no Postgres connection.
type EmailProcessor struct {
	Store   *deal.Store
	Builder Builder
	Sender  common.EmailSender
	Logger  *zerolog.Logger
}

// ProcessTask implements asynq.Handler.
func (p *EmailProcessor) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload EmailTaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("quote: decode email task: %v: %w", err, asynq.SkipRetry)
	}

	d, _, err := p.Store.Get(ctx, payload.DealID)
	if errors.Is(err, deal.ErrNotFound) {
		// The session expired or was reset after enqueue; retrying cannot help.
		p.observe("expired")
		return fmt.Errorf("quote: deal %s no longer stored: %w", payload.DealID, asynq.SkipRetry)
	}
	if err != nil {
		p.observe("error")
		return err
	}

	doc, err := p.Builder.Build(d, payload.Currency)
	if err != nil {
		p.observe("unquotable")
		return fmt.Errorf("quote: build document for %s: %v: %w", payload.DealID, err, asynq.SkipRetry)
	}

	subject := fmt.Sprintf("Your Enterprise Program Quote %s", doc.QuoteNumber)
	if err := p.Sender.Send(payload.To, subject, p.Builder.RenderText(doc)); err != nil {
		p.observe("failed")
		return fmt.Errorf("quote: send email for %s: %w", payload.DealID, err)
	}

	if p.Logger != nil {
		p.Logger.Info().
			Str("deal_id", payload.DealID).
			Str("quote_number", doc.QuoteNumber).
			Msg("quote email sent")
	}
	p.observe("sent")
	return nil
}

func (p *EmailProcessor) observe(result string) {
	if obs.QuoteEmailTotal != nil {
		obs.QuoteEmailTotal.WithLabelValues(result).Inc()
	}
}
