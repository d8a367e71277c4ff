// Package views turns page sessions into what the dashboard shows.
package views

import (
	"encoding/base64"
	"html/template"
	"strings"

	"checkin-dashboard/models"

	"github.com/gabriel-vasile/mimetype"
)

const CheckedInBadge = "Checked In"

// Card is one tile of the check-in grid.
type Card struct {
	ID         string       `json:"id,omitempty"`
	ImageSrc   template.URL `json:"imageSrc"`
	Title      string       `json:"title"`
	BookedDate string       `json:"bookedDate"`
	Owner      string       `json:"owner"`
	Badge      string       `json:"badge"`
}

// BuildCards renders one card per record, in order.
func BuildCards(records []models.CheckInRecord) []Card {
	cards := make([]Card, 0, len(records))
	for _, r := range records {
		cards = append(cards, Card{
			ID:         r.ID,
			ImageSrc:   ImageSource(r.Image),
			Title:      r.Title,
			BookedDate: r.BookedDate,
			Owner:      r.Name,
			Badge:      CheckedInBadge,
		})
	}
	return cards
}

// ImageSource gives a renderable image source for a resolved URL as well as
// for an image still held in memory. Anything else yields "".
func ImageSource(ref models.ImageRef) template.URL {
	if ref.URL != "" {
		if isSafeImageURL(ref.URL) {
			return template.URL(ref.URL)
		}
		return ""
	}
	if ref.File == nil || len(ref.File.Data) == 0 {
		return ""
	}
	mime := ref.File.ContentType
	if !strings.HasPrefix(mime, "image/") {
		mime = mimetype.Detect(ref.File.Data).String()
		if !strings.HasPrefix(mime, "image/") {
			return ""
		}
	}
	return template.URL("data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(ref.File.Data))
}

func isSafeImageURL(u string) bool {
	lower := strings.ToLower(u)
	return strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "http://") ||
		(strings.HasPrefix(u, "/") && !strings.HasPrefix(u, "//"))
}
