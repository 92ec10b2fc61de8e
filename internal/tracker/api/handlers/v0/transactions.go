package v0

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/service"
	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/telemetry"
	"github.com/scottsaenz/child-allowance-tracker/pkg/models"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/auth"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/database"
)

type ListTransactionsInput struct {
	ChildID string `query:"child_id" doc:"Only transactions of this child" required:"false"`
	Limit   int    `query:"limit" doc:"Maximum number of transactions, newest first; 0 for all" default:"0" minimum:"0" maximum:"1000"`
}

type TransactionBody struct {
	ChildID     string  `json:"child_id" minLength:"1" doc:"Child the transaction applies to"`
	Amount      float64 `json:"amount" doc:"Amount; must be positive except for adjustments" example:"5"`
	Description string  `json:"description,omitempty" maxLength:"500"`
	Type        string  `json:"transaction_type" enum:"allowance,chore,spending,adjustment" doc:"Spending subtracts from the balance, every other type adds"`
}

type CreateTransactionInput struct {
	Body TransactionBody
}

// RegisterTransactionsEndpoints registers transaction listing and recording
func RegisterTransactionsEndpoints(api huma.API, pathPrefix string, svc service.TrackerService, authz *auth.Authorizer, metrics *telemetry.Metrics) {
	suffix := strings.ReplaceAll(pathPrefix, "/", "-")
	tags := []string{"transactions"}

	huma.Register(api, huma.Operation{
		OperationID: "list-transactions" + suffix,
		Method:      http.MethodGet,
		Path:        pathPrefix + "/transactions",
		Summary:     "List transactions",
		Description: "List transactions newest first, optionally for one child",
		Tags:        tags,
		Security:    bearerSecurity,
	}, func(ctx context.Context, input *ListTransactionsInput) (*Response[[]*models.Transaction], error) {
		if _, err := authz.RequireUser(ctx); err != nil {
			return nil, HTTPError(ctx, err)
		}
		filter := &database.TransactionFilter{Limit: input.Limit}
		if input.ChildID != "" {
			filter.ChildID = &input.ChildID
		}
		txns, err := svc.ListTransactions(ctx, filter)
		if err != nil {
			return nil, HTTPError(ctx, err)
		}
		return &Response[[]*models.Transaction]{Body: txns}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-transaction" + suffix,
		Method:      http.MethodPost,
		Path:        pathPrefix + "/transactions",
		Summary:     "Record transaction",
		Description: "Record a transaction and apply it to the child's balance",
		Tags:        tags,
		Security:    bearerSecurity,
	}, func(ctx context.Context, input *CreateTransactionInput) (*Response[*models.Transaction], error) {
		if _, err := authz.RequireUser(ctx); err != nil {
			return nil, HTTPError(ctx, err)
		}
		txn, err := svc.CreateTransaction(ctx, &models.Transaction{
			ChildID:     input.Body.ChildID,
			Amount:      input.Body.Amount,
			Description: input.Body.Description,
			Type:        models.TransactionType(input.Body.Type),
		})
		if err != nil {
			return nil, HTTPError(ctx, err)
		}
		recordTransaction(ctx, metrics, txn)
		return &Response[*models.Transaction]{Body: txn}, nil
	})
}

func recordTransaction(ctx context.Context, metrics *telemetry.Metrics, txn *models.Transaction) {
	if metrics == nil || txn == nil {
		return
	}
	metrics.Transactions.Add(ctx, 1, metric.WithAttributes(attribute.String("transaction_type", string(txn.Type))))
}
