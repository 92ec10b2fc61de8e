package v0

import (
	"context"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/logging"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/errs"
)

// HTTPError converts a domain error into a huma status error. Upstream and
// internal failures are logged and answered with a generic message.
func HTTPError(ctx context.Context, err error) error {
	kind := errs.KindOf(err)
	if !kind.Safe() {
		slog.ErrorContext(ctx, "request failed", logging.Err(err), "kind", string(kind))
	}
	return huma.NewError(kind.HTTPStatus(), errs.Message(err))
}
