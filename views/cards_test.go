package views

import (
	"bytes"
	"html/template"
	"strings"
	"testing"
	"time"

	"checkin-dashboard/models"
	"checkin-dashboard/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 8)...)

func TestBuildCards(t *testing.T) {
	cards := BuildCards([]models.CheckInRecord{
		{ID: "id-1", Title: "Sea View", Name: "Jane", BookedDate: "2024-05-02",
			Image: models.ImageRef{URL: "http://localhost:8080/files/uploads/a.jpg"}},
		{Title: "Garden", Name: "Joe", BookedDate: "2024-05-03",
			Image: models.ImageRef{File: &models.ImageFile{ContentType: "image/png", Data: pngBytes}}},
	})

	require.Len(t, cards, 2)
	assert.Equal(t, "Sea View", cards[0].Title)
	assert.Equal(t, "Jane", cards[0].Owner)
	assert.Equal(t, CheckedInBadge, cards[0].Badge)
	assert.Equal(t, template.URL("http://localhost:8080/files/uploads/a.jpg"), cards[0].ImageSrc)
	assert.True(t, strings.HasPrefix(string(cards[1].ImageSrc), "data:image/png;base64,"))
	assert.Empty(t, cards[1].ID)
}

func TestImageSource(t *testing.T) {
	assert.Equal(t, template.URL("/files/uploads/a.jpg"), ImageSource(models.ImageRef{URL: "/files/uploads/a.jpg"}))
	assert.Empty(t, ImageSource(models.ImageRef{URL: "javascript:alert(1)"}))
	assert.Empty(t, ImageSource(models.ImageRef{URL: "//evil.example/a.jpg"}))
	assert.Empty(t, ImageSource(models.ImageRef{}))
	assert.Empty(t, ImageSource(models.ImageRef{File: &models.ImageFile{Data: []byte("plain text")}}))

	// Missing content type is sniffed.
	src := ImageSource(models.ImageRef{File: &models.ImageFile{Data: pngBytes}})
	assert.True(t, strings.HasPrefix(string(src), "data:image/png;base64,"))

	src = ImageSource(models.ImageRef{File: &models.ImageFile{ContentType: "application/octet-stream", Data: pngBytes}})
	assert.True(t, strings.HasPrefix(string(src), "data:image/png;base64,"))
}

func TestNewDashboard(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	form := services.NewCheckInForm(now).Open(now)
	form, err := form.AttachImage(&models.ImageFile{FileName: "a.png", Data: pngBytes})
	require.NoError(t, err)

	d := NewDashboard(&services.PageSession{ID: "s1", Form: form}, "/s/s1/form/preview")

	assert.True(t, d.Empty())
	assert.True(t, d.ShowBasic())
	assert.False(t, d.ShowDetail())
	assert.Equal(t, "a.png", d.Form.Draft.UploadedFile)
	assert.Equal(t, "/s/s1/form/preview?v=1-1", d.Form.PreviewURL)
	assert.Equal(t, "12345678", d.Form.Draft.BookingID)

	// A replacement of the same size still gets a new preview URL.
	other := append([]byte(nil), pngBytes...)
	other[len(other)-1] ^= 0xff
	replaced, err := form.AttachImage(&models.ImageFile{FileName: "b.png", Data: other})
	require.NoError(t, err)
	next := NewDashboard(&services.PageSession{ID: "s1", Form: replaced}, "/s/s1/form/preview")
	assert.Equal(t, "/s/s1/form/preview?v=1-2", next.Form.PreviewURL)
	assert.NotEqual(t, d.Form.PreviewURL, next.Form.PreviewURL)

	closed := NewDashboard(&services.PageSession{ID: "s1", Form: form.Cancel(now)}, "/s/s1/form/preview")
	assert.Empty(t, closed.Form.PreviewURL)
}

func TestTemplates_RenderDashboard(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	sess := &services.PageSession{
		ID:   "s1",
		Form: services.NewCheckInForm(now),
	}

	var buf bytes.Buffer
	require.NoError(t, Templates().ExecuteTemplate(&buf, "dashboard.tmpl", NewDashboard(sess, "/s/s1/form/preview")))
	assert.Contains(t, buf.String(), "Added CheckIns")
	assert.Contains(t, buf.String(), "There is no data here ...!")

	sess.Records = []models.CheckInRecord{{Title: "Sea View", Name: "Jane", BookedDate: "2024-05-02",
		Image: models.ImageRef{URL: "/files/uploads/a.jpg"}}}
	sess.Form = sess.Form.Open(now)

	buf.Reset()
	require.NoError(t, Templates().ExecuteTemplate(&buf, "dashboard.tmpl", NewDashboard(sess, "/s/s1/form/preview")))
	out := buf.String()
	assert.NotContains(t, out, "There is no data here ...!")
	assert.Contains(t, out, "Sea View")
	assert.Contains(t, out, "Owner: Jane")
	assert.Contains(t, out, "Checked In")
	assert.Contains(t, out, `action="/s/s1/form/basic"`)
}
