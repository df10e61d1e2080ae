// Package response holds the JSON envelope shared by every /api route.
package response

import (
	"net/http"

	"github.com/taylorsterlingwrites/threshold-compass/internal"
)

// Envelope carries either Data (with optional Meta) or Error, never both.
type Envelope struct {
	Data  interface{}        `json:"data,omitempty"`
	Meta  map[string]any     `json:"meta,omitempty"`
	Error *internal.AppError `json:"error,omitempty"`
}

func OK(data interface{}, meta map[string]any) Envelope {
	return Envelope{Data: data, Meta: meta}
}

// Page is OK with the paging window echoed back in Meta.
func Page(data interface{}, limit, offset int) Envelope {
	return OK(data, map[string]any{"limit": limit, "offset": offset})
}

// Counted is OK with the number of returned items in Meta.
func Counted(data interface{}, count int) Envelope {
	return OK(data, map[string]any{"count": count})
}

func Fail(status int, msg string) Envelope {
	return Envelope{Error: internal.NewAppError(status, msg)}
}

func Unauthorized() Envelope {
	return Fail(http.StatusUnauthorized, "Unauthorized")
}

// Internal hides the cause; it is logged, not returned.
func Internal(msg string) Envelope {
	return Fail(http.StatusInternalServerError, msg)
}
