package v0

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/service"
	"github.com/scottsaenz/child-allowance-tracker/pkg/models"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/auth"
)

type UserInput struct {
	Email string `path:"email" doc:"URL-encoded user email" example:"parent%40example.com"`
}

type UpdateUserBody struct {
	IsActive *bool `json:"is_active,omitempty" doc:"Inactive users are refused on every protected route"`
	IsAdmin  *bool `json:"is_admin,omitempty" doc:"Stored flag only; admin routes check ADMIN_EMAILS"`
}

type UpdateUserInput struct {
	Email string `path:"email" doc:"URL-encoded user email"`
	Body  UpdateUserBody
}

// RegisterUsersEndpoints registers the admin user management endpoints
func RegisterUsersEndpoints(api huma.API, pathPrefix string, svc service.TrackerService, authz *auth.Authorizer) {
	suffix := strings.ReplaceAll(pathPrefix, "/", "-")
	tags := []string{"users", "admin"}

	huma.Register(api, huma.Operation{
		OperationID: "list-users" + suffix,
		Method:      http.MethodGet,
		Path:        pathPrefix + "/admin/users",
		Summary:     "List users",
		Tags:        tags,
		Security:    bearerSecurity,
	}, func(ctx context.Context, _ *struct{}) (*Response[[]*models.User], error) {
		if _, err := authz.RequireAdmin(ctx); err != nil {
			return nil, HTTPError(ctx, err)
		}
		users, err := svc.ListUsers(ctx)
		if err != nil {
			return nil, HTTPError(ctx, err)
		}
		return &Response[[]*models.User]{Body: users}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-user" + suffix,
		Method:      http.MethodPatch,
		Path:        pathPrefix + "/admin/users/{email}",
		Summary:     "Update user flags",
		Description: "Activate or deactivate a user, or change the stored admin flag",
		Tags:        tags,
		Security:    bearerSecurity,
	}, func(ctx context.Context, input *UpdateUserInput) (*Response[*models.User], error) {
		if _, err := authz.RequireAdmin(ctx); err != nil {
			return nil, HTTPError(ctx, err)
		}
		email, err := url.PathUnescape(input.Email)
		if err != nil {
			return nil, huma.Error400BadRequest("Invalid email encoding", err)
		}
		user, err := svc.UpdateUser(ctx, email, service.UserUpdate{
			IsActive: input.Body.IsActive,
			IsAdmin:  input.Body.IsAdmin,
		})
		if err != nil {
			return nil, HTTPError(ctx, err)
		}
		return &Response[*models.User]{Body: user}, nil
	})
}
