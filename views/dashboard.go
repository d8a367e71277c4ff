package views

import (
	"fmt"

	"checkin-dashboard/services"
)

// Dashboard is everything the dashboard page renders for one session.
type Dashboard struct {
	SessionID string   `json:"sessionId"`
	Cards     []Card   `json:"cards"`
	Form      FormView `json:"form"`
}

type FormView struct {
	Stage      services.FormStage   `json:"stage"`
	Draft      DraftView            `json:"draft"`
	Errors     services.FieldErrors `json:"errors"`
	Notice     string               `json:"notice,omitempty"`
	Submitting bool                 `json:"submitting"`
	PreviewURL string               `json:"previewUrl,omitempty"`
}

// DraftView is the draft without the image bytes.
type DraftView struct {
	Title        string `json:"title"`
	Name         string `json:"name"`
	BookingID    string `json:"bookingID"`
	Rooms        int    `json:"rooms"`
	Guests       int    `json:"guests"`
	BookedDate   string `json:"bookedDate"`
	UploadedFile string `json:"uploadedFile,omitempty"`
}

// NewDashboard builds the view of a session. previewBase is the path the
// draft image is served from; the form generation is appended so a replaced
// image is never served from cache.
func NewDashboard(sess *services.PageSession, previewBase string) Dashboard {
	f := sess.Form
	view := FormView{
		Stage:      f.Stage,
		Errors:     f.Errors,
		Notice:     f.Notice,
		Submitting: f.Submitting,
		Draft: DraftView{
			Title:      f.Draft.Title,
			Name:       f.Draft.Name,
			BookingID:  f.Draft.BookingID,
			Rooms:      f.Draft.Rooms,
			Guests:     f.Draft.Guests,
			BookedDate: f.Draft.BookedDate,
		},
	}
	if view.Errors == nil {
		view.Errors = services.FieldErrors{}
	}
	if img := f.Draft.Image; img != nil && f.IsOpen() {
		view.Draft.UploadedFile = img.FileName
		view.PreviewURL = fmt.Sprintf("%s?v=%d-%d", previewBase, f.Generation, f.ImageVersion)
	}
	return Dashboard{
		SessionID: sess.ID,
		Cards:     BuildCards(sess.Records),
		Form:      view,
	}
}

func (d Dashboard) Empty() bool {
	return len(d.Cards) == 0
}

func (d Dashboard) ShowBasic() bool {
	return d.Form.Stage == services.StageBasicInfo
}

func (d Dashboard) ShowDetail() bool {
	return d.Form.Stage == services.StageDetail
}
