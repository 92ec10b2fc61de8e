package v0

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/service"
	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/telemetry"
	"github.com/scottsaenz/child-allowance-tracker/pkg/models"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/auth"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/database"
)

type ListChoresInput struct {
	AssignedTo string `query:"assigned_to" doc:"Only chores assigned to this child id" required:"false"`
	Completed  string `query:"completed" doc:"Filter by completion: true or false" required:"false" example:"false"`
}

type ChoreBody struct {
	Name        string  `json:"name" minLength:"1" maxLength:"200" example:"Dishes"`
	Description string  `json:"description,omitempty" maxLength:"1000"`
	Value       float64 `json:"value,omitempty" minimum:"0" doc:"Amount paid to the assigned child on completion" example:"1.5"`
	AssignedTo  string  `json:"assigned_to,omitempty" doc:"Child id"`
}

type CreateChoreInput struct {
	Body ChoreBody
}

type ChoreInput struct {
	ID string `path:"id" doc:"Chore id"`
}

type CompleteChoreBody struct {
	Message     string              `json:"message" example:"Chore Dishes completed successfully"`
	Chore       *models.Chore       `json:"chore"`
	Transaction *models.Transaction `json:"transaction,omitempty" doc:"Payment recorded for the assigned child"`
}

// RegisterChoresEndpoints registers chore listing, creation and completion
func RegisterChoresEndpoints(api huma.API, pathPrefix string, svc service.TrackerService, authz *auth.Authorizer, metrics *telemetry.Metrics) {
	suffix := strings.ReplaceAll(pathPrefix, "/", "-")
	tags := []string{"chores"}

	huma.Register(api, huma.Operation{
		OperationID: "list-chores" + suffix,
		Method:      http.MethodGet,
		Path:        pathPrefix + "/chores",
		Summary:     "List chores",
		Tags:        tags,
		Security:    bearerSecurity,
	}, func(ctx context.Context, input *ListChoresInput) (*Response[[]*models.Chore], error) {
		if _, err := authz.RequireUser(ctx); err != nil {
			return nil, HTTPError(ctx, err)
		}
		filter := &database.ChoreFilter{}
		if input.AssignedTo != "" {
			filter.AssignedTo = &input.AssignedTo
		}
		if input.Completed != "" {
			completed, err := strconv.ParseBool(input.Completed)
			if err != nil {
				return nil, huma.Error400BadRequest("Invalid completed filter: expected true or false")
			}
			filter.Completed = &completed
		}
		chores, err := svc.ListChores(ctx, filter)
		if err != nil {
			return nil, HTTPError(ctx, err)
		}
		return &Response[[]*models.Chore]{Body: chores}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-chore" + suffix,
		Method:      http.MethodPost,
		Path:        pathPrefix + "/chores",
		Summary:     "Create chore",
		Tags:        tags,
		Security:    bearerSecurity,
	}, func(ctx context.Context, input *CreateChoreInput) (*Response[*models.Chore], error) {
		if _, err := authz.RequireUser(ctx); err != nil {
			return nil, HTTPError(ctx, err)
		}
		chore, err := svc.CreateChore(ctx, &models.Chore{
			Name:        input.Body.Name,
			Description: input.Body.Description,
			Value:       input.Body.Value,
			AssignedTo:  input.Body.AssignedTo,
		})
		if err != nil {
			return nil, HTTPError(ctx, err)
		}
		return &Response[*models.Chore]{Body: chore}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-chore" + suffix,
		Method:      http.MethodPut,
		Path:        pathPrefix + "/chores/{id}/complete",
		Summary:     "Complete chore",
		Description: "Mark a chore as completed and pay its value to the assigned child. Completing a chore twice is a 400.",
		Tags:        tags,
		Security:    bearerSecurity,
	}, func(ctx context.Context, input *ChoreInput) (*Response[CompleteChoreBody], error) {
		if _, err := authz.RequireUser(ctx); err != nil {
			return nil, HTTPError(ctx, err)
		}
		done, err := svc.CompleteChore(ctx, input.ID)
		if err != nil {
			return nil, HTTPError(ctx, err)
		}
		recordTransaction(ctx, metrics, done.Transaction)
		return &Response[CompleteChoreBody]{
			Body: CompleteChoreBody{
				Message:     "Chore " + done.Chore.Name + " completed successfully",
				Chore:       done.Chore,
				Transaction: done.Transaction,
			},
		}, nil
	})
}
