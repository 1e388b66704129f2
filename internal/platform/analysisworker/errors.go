package analysisworker

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// HTTPError is a non-success answer from the worker. Message is always set.
type HTTPError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "analysis worker error"
	}
	return e.Message
}

// TransportError means no endpoint could be reached.
type TransportError struct {
	Endpoints []string
	Err       error
}

func (e *TransportError) Error() string {
	if e == nil || e.Err == nil {
		return "analysis worker unreachable"
	}
	return fmt.Sprintf("analysis worker unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func genericMessage(status int) string {
	if text := http.StatusText(status); text != "" {
		return fmt.Sprintf("analysis worker request failed (%d %s)", status, text)
	}
	return fmt.Sprintf("analysis worker request failed (%d)", status)
}

// parseHTTPError prefers the worker's "detail", then "error", then "message".
func parseHTTPError(status int, raw []byte) *HTTPError {
	body := strings.TrimSpace(string(raw))
	out := &HTTPError{StatusCode: status, Body: body, Message: genericMessage(status)}

	var env map[string]json.RawMessage
	if err := json.Unmarshal(raw, &env); err != nil {
		return out
	}
	for _, key := range []string{"detail", "error", "message"} {
		if msg := messageFrom(env[key]); msg != "" {
			out.Message = msg
			return out
		}
	}
	return out
}

// messageFrom accepts a string, an object carrying message/msg/detail, or a
// list of those (FastAPI validation errors).
func messageFrom(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		for _, key := range []string{"message", "msg", "detail"} {
			if msg := messageFrom(obj[key]); msg != "" {
				return msg
			}
		}
		return ""
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			if msg := messageFrom(item); msg != "" {
				parts = append(parts, msg)
			}
		}
		return strings.Join(parts, "; ")
	}
	return ""
}
