package provider

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sells-group/callintel/internal/model"
)

// classify maps a client error to a provider status. The HTTP clients retry
// transient failures internally, so whatever reaches here is the final
// outcome of the call.
func classify(err error) model.ProviderStatus {
	if errors.Is(err, context.DeadlineExceeded) {
		return model.StatusTimeout
	}
	if errors.Is(err, context.Canceled) {
		return model.StatusTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "status 429") || strings.Contains(msg, "rate limit"):
		return model.StatusRateLimited
	case strings.Contains(msg, "status 404") || strings.Contains(msg, "not found"):
		return model.StatusNotFound
	case strings.Contains(msg, "timed out") || strings.Contains(msg, "timeout"):
		return model.StatusTimeout
	default:
		return model.StatusError
	}
}

// failure builds a failed ProviderResult for the given error.
func failure(name string, err error) model.ProviderResult {
	return model.ProviderResult{
		Provider:  name,
		Status:    classify(err),
		FetchedAt: time.Now().UTC(),
		Err:       err.Error(),
	}
}

// notFound builds a not_found ProviderResult with a reason.
func notFound(name, reason string) model.ProviderResult {
	return model.ProviderResult{
		Provider:  name,
		Status:    model.StatusNotFound,
		FetchedAt: time.Now().UTC(),
		Err:       reason,
	}
}

// success builds an ok ProviderResult carrying the mapped fields.
func success(name string, fields map[string]any) model.ProviderResult {
	return model.ProviderResult{
		Provider:  name,
		Status:    model.StatusOK,
		Fields:    fields,
		FetchedAt: time.Now().UTC(),
	}
}
