package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/san-kum/ltiresp/internal/dynamo"
)

// describe maps an engine failure to the message shown to clients. Errors
// outside the engine's vocabulary get a generic message.
func (s *Server) describe(err error) string {
	switch {
	case errors.Is(err, dynamo.ErrImproperTransferFunction):
		return "the denominator must have a higher degree than the numerator for the transfer function to be proper"
	case errors.Is(err, dynamo.ErrDegreeExceeded):
		return fmt.Sprintf("the highest allowed numerator or denominator degree is %d", s.cfg.Limits.MaxDegree)
	case errors.Is(err, dynamo.ErrSingularSystem):
		return "the leading denominator coefficient must be nonzero"
	case errors.Is(err, dynamo.ErrUnstableSimulation):
		return "the response diverged within the requested horizon"
	case errors.Is(err, dynamo.ErrParameterBounds):
		return "invalid parameters: " + err.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "request cancelled"
	default:
		return "internal error"
	}
}
