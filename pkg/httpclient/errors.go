package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/proyectos-la/digital-world/pkg/errors"
)

type upstreamErrorBody struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

// ParseResponseError consumes and closes a non-2xx response and maps it to an
// AppError. Both {"error":{"code","message"}} and {"message"} bodies are understood.
func ParseResponseError(resp *http.Response, upstream string) error {
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (read body: %w)", upstream, resp.StatusCode, err)
	}

	message := string(raw)
	var body upstreamErrorBody
	if json.Unmarshal(raw, &body) == nil {
		switch {
		case body.Error != nil:
			message = body.Error.Message
		case body.Message != "":
			message = body.Message
		}
	}
	qualified := fmt.Sprintf("%s: %s", upstream, message)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NotFound(upstream, message)
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusRequestEntityTooLarge,
		resp.StatusCode == http.StatusUnsupportedMediaType:
		return apperrors.InvalidInput(qualified)
	case resp.StatusCode == http.StatusConflict:
		return apperrors.Conflict(qualified)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		// Credentials for an upstream are ours, not the caller's.
		return apperrors.Internal(fmt.Errorf("%s rejected credentials (%d): %s", upstream, resp.StatusCode, message))
	case resp.StatusCode == http.StatusServiceUnavailable, resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.Unavailable(upstream, fmt.Errorf("status %d: %s", resp.StatusCode, message))
	default:
		return fmt.Errorf("%s returned status %d: %s", upstream, resp.StatusCode, message)
	}
}
