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

// ChildBody is the writable part of a child record.
type ChildBody struct {
	Name            string  `json:"name" minLength:"1" maxLength:"100" doc:"Child's name" example:"Alice"`
	Age             int     `json:"age,omitempty" minimum:"0" maximum:"30" doc:"Age in years" example:"9"`
	WeeklyAllowance float64 `json:"weekly_allowance,omitempty" minimum:"0" doc:"Weekly allowance amount" example:"5"`
	CurrentBalance  float64 `json:"current_balance,omitempty" doc:"Balance override; normally changed through transactions"`
}

func (b ChildBody) model() *models.Child {
	return &models.Child{
		Name:            b.Name,
		Age:             b.Age,
		WeeklyAllowance: b.WeeklyAllowance,
		CurrentBalance:  b.CurrentBalance,
	}
}

type ChildInput struct {
	ID string `path:"id" doc:"Child id" example:"child_8f14e45f"`
}

type CreateChildInput struct {
	Body ChildBody
}

type UpdateChildInput struct {
	ID   string `path:"id" doc:"Child id"`
	Body ChildBody
}

// RegisterChildrenEndpoints registers the child CRUD endpoints
func RegisterChildrenEndpoints(api huma.API, pathPrefix string, svc service.TrackerService, authz *auth.Authorizer) {
	suffix := strings.ReplaceAll(pathPrefix, "/", "-")
	tags := []string{"children"}

	huma.Register(api, huma.Operation{
		OperationID: "list-children" + suffix,
		Method:      http.MethodGet,
		Path:        pathPrefix + "/children",
		Summary:     "List children",
		Tags:        tags,
		Security:    bearerSecurity,
	}, func(ctx context.Context, _ *struct{}) (*Response[[]*models.Child], error) {
		if _, err := authz.RequireUser(ctx); err != nil {
			return nil, HTTPError(ctx, err)
		}
		children, err := svc.ListChildren(ctx)
		if err != nil {
			return nil, HTTPError(ctx, err)
		}
		return &Response[[]*models.Child]{Body: children}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-child" + suffix,
		Method:      http.MethodPost,
		Path:        pathPrefix + "/children",
		Summary:     "Create child",
		Description: "Create a child. The id and creation time are assigned by the server.",
		Tags:        tags,
		Security:    bearerSecurity,
	}, func(ctx context.Context, input *CreateChildInput) (*Response[*models.Child], error) {
		if _, err := authz.RequireUser(ctx); err != nil {
			return nil, HTTPError(ctx, err)
		}
		child, err := svc.CreateChild(ctx, input.Body.model())
		if err != nil {
			return nil, HTTPError(ctx, err)
		}
		return &Response[*models.Child]{Body: child}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-child" + suffix,
		Method:      http.MethodGet,
		Path:        pathPrefix + "/children/{id}",
		Summary:     "Get child",
		Tags:        tags,
		Security:    bearerSecurity,
	}, func(ctx context.Context, input *ChildInput) (*Response[*models.Child], error) {
		if _, err := authz.RequireUser(ctx); err != nil {
			return nil, HTTPError(ctx, err)
		}
		child, err := svc.GetChild(ctx, input.ID)
		if err != nil {
			return nil, HTTPError(ctx, err)
		}
		return &Response[*models.Child]{Body: child}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-child" + suffix,
		Method:      http.MethodPut,
		Path:        pathPrefix + "/children/{id}",
		Summary:     "Update child",
		Description: "Replace a child's name, age, allowance and balance. The id and creation time are kept.",
		Tags:        tags,
		Security:    bearerSecurity,
	}, func(ctx context.Context, input *UpdateChildInput) (*Response[*models.Child], error) {
		if _, err := authz.RequireUser(ctx); err != nil {
			return nil, HTTPError(ctx, err)
		}
		child, err := svc.UpdateChild(ctx, input.ID, input.Body.model())
		if err != nil {
			return nil, HTTPError(ctx, err)
		}
		return &Response[*models.Child]{Body: child}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-child" + suffix,
		Method:      http.MethodDelete,
		Path:        pathPrefix + "/children/{id}",
		Summary:     "Delete child",
		Description: "Delete a child. Its transactions are kept.",
		Tags:        tags,
		Security:    bearerSecurity,
	}, func(ctx context.Context, input *ChildInput) (*Response[EmptyResponse], error) {
		if _, err := authz.RequireUser(ctx); err != nil {
			return nil, HTTPError(ctx, err)
		}
		child, err := svc.DeleteChild(ctx, input.ID)
		if err != nil {
			return nil, HTTPError(ctx, err)
		}
		return &Response[EmptyResponse]{
			Body: EmptyResponse{Message: "Child " + child.Name + " deleted successfully"},
		}, nil
	})
}
