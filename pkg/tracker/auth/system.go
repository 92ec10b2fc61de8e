package auth

import (
	"context"

	"github.com/scottsaenz/child-allowance-tracker/pkg/models"
)

// SystemEmail identifies the system principal in logs and responses.
const SystemEmail = "system@allowance-tracker.local"

// SystemSession is used for internal operations (seed import, stdio MCP) and
// for every request when authentication is disabled.
type SystemSession struct{}

func (s *SystemSession) Principal() Principal {
	return Principal{User: systemUser()}
}

func systemUser() *models.User {
	return &models.User{
		Email:    SystemEmail,
		Name:     "system",
		IsActive: true,
		IsAdmin:  true,
	}
}

// IsSystemSession checks if a session is the SystemSession type.
func IsSystemSession(s Session) bool {
	_, ok := s.(*SystemSession)
	return ok
}

// WithSystemContext creates a context for internal system operations.
func WithSystemContext(ctx context.Context) context.Context {
	return AuthSessionTo(ctx, &SystemSession{})
}
