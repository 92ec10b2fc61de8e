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

type ListExpendituresInput struct {
	ChildName string `query:"child_name" doc:"Only expenditures of this child" required:"false"`
}

// ExpenditureBody requires amount, date and description; a missing field is rejected before the handler runs.
type ExpenditureBody struct {
	ChildName   string  `json:"child_name,omitempty" maxLength:"100" example:"Alice"`
	Amount      float64 `json:"amount" exclusiveMinimum:"0" example:"12.5"`
	Date        string  `json:"date" minLength:"1" example:"2025-06-01"`
	Description string  `json:"description" minLength:"1" maxLength:"500" example:"Library book"`
}

type CreateExpenditureInput struct {
	Body ExpenditureBody
}

type TotalSpentBody struct {
	ChildName  string  `json:"child_name,omitempty"`
	TotalSpent float64 `json:"total_spent"`
}

// RegisterExpendituresEndpoints registers expenditure recording and reporting
func RegisterExpendituresEndpoints(api huma.API, pathPrefix string, svc service.TrackerService, authz *auth.Authorizer) {
	suffix := strings.ReplaceAll(pathPrefix, "/", "-")
	tags := []string{"expenditures"}

	huma.Register(api, huma.Operation{
		OperationID: "list-expenditures" + suffix,
		Method:      http.MethodGet,
		Path:        pathPrefix + "/expenditures",
		Summary:     "List expenditures",
		Tags:        tags,
		Security:    bearerSecurity,
	}, func(ctx context.Context, input *ListExpendituresInput) (*Response[[]*models.Expenditure], error) {
		if _, err := authz.RequireUser(ctx); err != nil {
			return nil, HTTPError(ctx, err)
		}
		exps, err := svc.ListExpenditures(ctx, input.ChildName)
		if err != nil {
			return nil, HTTPError(ctx, err)
		}
		return &Response[[]*models.Expenditure]{Body: exps}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-expenditure" + suffix,
		Method:        http.MethodPost,
		Path:          pathPrefix + "/expenditures",
		Summary:       "Record expenditure",
		Description:   "Record an expenditure. It is also appended to the configured spreadsheet when one is set.",
		Tags:          tags,
		Security:      bearerSecurity,
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateExpenditureInput) (*Response[*models.Expenditure], error) {
		if _, err := authz.RequireUser(ctx); err != nil {
			return nil, HTTPError(ctx, err)
		}
		exp, err := svc.CreateExpenditure(ctx, &models.Expenditure{
			ChildName:   input.Body.ChildName,
			Amount:      input.Body.Amount,
			Date:        input.Body.Date,
			Description: input.Body.Description,
		})
		if err != nil {
			return nil, HTTPError(ctx, err)
		}
		return &Response[*models.Expenditure]{Body: exp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-expenditures-total" + suffix,
		Method:      http.MethodGet,
		Path:        pathPrefix + "/expenditures/total",
		Summary:     "Total spent",
		Description: "Sum of expenditures, for one child when child_name is given",
		Tags:        tags,
		Security:    bearerSecurity,
	}, func(ctx context.Context, input *ListExpendituresInput) (*Response[TotalSpentBody], error) {
		if _, err := authz.RequireUser(ctx); err != nil {
			return nil, HTTPError(ctx, err)
		}
		total, err := svc.TotalSpent(ctx, input.ChildName)
		if err != nil {
			return nil, HTTPError(ctx, err)
		}
		return &Response[TotalSpentBody]{Body: TotalSpentBody{ChildName: input.ChildName, TotalSpent: total}}, nil
	})
}
