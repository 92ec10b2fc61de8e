package v0

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/service"
	"github.com/scottsaenz/child-allowance-tracker/pkg/models"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/auth"
)

// RegisterReportsEndpoints registers the summary report
func RegisterReportsEndpoints(api huma.API, pathPrefix string, svc service.TrackerService, authz *auth.Authorizer) {
	huma.Register(api, huma.Operation{
		OperationID: "get-summary" + strings.ReplaceAll(pathPrefix, "/", "-"),
		Method:      http.MethodGet,
		Path:        pathPrefix + "/reports/summary",
		Summary:     "Summary report",
		Description: "Totals across all records, per-child balances and financials, and the 10 most recent transactions",
		Tags:        []string{"reports"},
		Security:    bearerSecurity,
	}, func(ctx context.Context, _ *struct{}) (*Response[*models.Summary], error) {
		if _, err := authz.RequireUser(ctx); err != nil {
			return nil, HTTPError(ctx, err)
		}
		summary, err := svc.Summary(ctx)
		if err != nil {
			return nil, HTTPError(ctx, err)
		}
		return &Response[*models.Summary]{Body: summary}, nil
	})
}
