package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/comilla/site-backend/internal/domain/attachments"
)

// recordID reads a record id from the {id} path value or, for PATCH
// bodies, from the id or _id field.
func recordID(r *http.Request, body *requestBody) string {
	if id := strings.TrimSpace(r.PathValue("id")); id != "" {
		return id
	}
	if body != nil {
		return strings.TrimSpace(body.field("id", "_id"))
	}
	return ""
}

// imageFields is the wire projection of attachments.Slots.
type imageFields struct {
	ImageKeys []string `json:"imageKeys"`
	ImageURLs []string `json:"imageUrls"`
}

func toImageFields(slots attachments.Slots) imageFields {
	return imageFields{ImageKeys: slots.Keys(), ImageURLs: slots.URLs()}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
