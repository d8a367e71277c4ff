package services

import (
	"testing"
	"time"

	"checkin-dashboard/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func pngImage(name string) *models.ImageFile {
	return &models.ImageFile{
		FileName: name,
		Data:     append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...),
	}
}

// detailForm returns a form that passed step one.
func detailForm(t *testing.T) CheckInForm {
	t.Helper()
	form, err := NewCheckInForm(testNow).Open(testNow).ConfirmBasic(FormInput{
		Fields: map[string]string{FieldTitle: "Sea View"},
		Image:  pngImage("a.png"),
	})
	require.NoError(t, err)
	require.Equal(t, StageDetail, form.Stage)
	return form
}

func TestCheckInForm_OpenUsesDefaults(t *testing.T) {
	closed := NewCheckInForm(testNow)
	assert.False(t, closed.IsOpen())

	form := closed.Open(testNow)

	assert.Equal(t, StageBasicInfo, form.Stage)
	assert.Equal(t, "12345678", form.Draft.BookingID)
	assert.Equal(t, 4, form.Draft.Rooms)
	assert.Equal(t, 4, form.Draft.Guests)
	assert.Equal(t, "2024-05-01", form.Draft.BookedDate)
	assert.Empty(t, form.Draft.Title)
	assert.Empty(t, form.Errors)
	assert.Equal(t, closed.Generation+1, form.Generation)
}

func TestCheckInForm_ConfirmBasic_ReportsMissingTitleAndImage(t *testing.T) {
	form, err := NewCheckInForm(testNow).Open(testNow).ConfirmBasic(FormInput{})
	require.NoError(t, err)

	assert.Equal(t, StageBasicInfo, form.Stage)
	assert.Equal(t, FieldErrors{
		FieldTitle: "Title is required",
		FieldImage: "Image is required",
	}, form.Errors)
}

func TestCheckInForm_ConfirmBasic_ReportsOnlyImage(t *testing.T) {
	form, err := NewCheckInForm(testNow).Open(testNow).ConfirmBasic(FormInput{
		Fields: map[string]string{FieldTitle: "Sea View"},
	})
	require.NoError(t, err)

	assert.Equal(t, StageBasicInfo, form.Stage)
	assert.Equal(t, FieldErrors{FieldImage: "Image is required"}, form.Errors)
	assert.Equal(t, "Sea View", form.Draft.Title)
}

func TestCheckInForm_ConfirmBasic_RejectsNonImage(t *testing.T) {
	form, err := NewCheckInForm(testNow).Open(testNow).ConfirmBasic(FormInput{
		Fields: map[string]string{FieldTitle: "Sea View"},
		Image:  &models.ImageFile{FileName: "notes.txt", Data: []byte("hello world")},
	})
	require.NoError(t, err)

	assert.Equal(t, StageBasicInfo, form.Stage)
	assert.Equal(t, "Only image files can be uploaded", form.Errors[FieldImage])
	assert.Nil(t, form.Draft.Image)
}

func TestCheckInForm_ConfirmBasic_AdvancesToDetail(t *testing.T) {
	form := detailForm(t)

	assert.Empty(t, form.Errors)
	assert.Equal(t, "Sea View", form.Draft.Title)
	require.NotNil(t, form.Draft.Image)
	assert.Equal(t, "image/png", form.Draft.Image.ContentType)
	assert.Equal(t, "a.png", form.Draft.Image.FileName)
}

func TestCheckInForm_ConfirmBasic_WrongStage(t *testing.T) {
	_, err := NewCheckInForm(testNow).ConfirmBasic(FormInput{})
	assert.ErrorIs(t, err, ErrWrongStage)

	_, err = detailForm(t).ConfirmBasic(FormInput{})
	assert.ErrorIs(t, err, ErrWrongStage)
}

func TestCheckInForm_SetField_ParsesCounts(t *testing.T) {
	form, err := detailForm(t).SetField(FieldRooms, "7")
	require.NoError(t, err)
	assert.Equal(t, 7, form.Draft.Rooms)
	assert.NotContains(t, form.Errors, FieldRooms)

	form, err = form.SetField(FieldGuests, "abc")
	require.NoError(t, err)
	assert.Equal(t, 0, form.Draft.Guests)
	assert.Equal(t, "guests must be a whole number", form.Errors[FieldGuests])

	form, err = form.SetField(FieldGuests, "2")
	require.NoError(t, err)
	assert.Equal(t, 2, form.Draft.Guests)
	assert.NotContains(t, form.Errors, FieldGuests)
}

func TestCheckInForm_SetField_Dates(t *testing.T) {
	form, err := detailForm(t).SetField(FieldBookedDate, "2024-06-02T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-02", form.Draft.BookedDate)

	form, err = form.SetField(FieldBookedDate, "next week")
	require.NoError(t, err)
	assert.Equal(t, "bookedDate must be a date (YYYY-MM-DD)", form.Errors[FieldBookedDate])
}

func TestCheckInForm_SetField_Guards(t *testing.T) {
	_, err := detailForm(t).SetField("color", "red")
	assert.ErrorIs(t, err, ErrUnknownField)

	_, err = detailForm(t).SetField(FieldTitle, "Other")
	assert.ErrorIs(t, err, ErrFieldNotEditable)

	_, err = NewCheckInForm(testNow).SetField(FieldName, "Jane")
	assert.ErrorIs(t, err, ErrFieldNotEditable)
}

func TestCheckInForm_ConfirmDetail_ReportsMissingFields(t *testing.T) {
	form, err := detailForm(t).ConfirmDetail(FormInput{Fields: map[string]string{
		FieldBookingID: "",
	}})
	require.NoError(t, err)

	assert.Equal(t, StageDetail, form.Stage)
	assert.False(t, form.Submitting)
	assert.Equal(t, FieldErrors{
		FieldName:      "name is required",
		FieldBookingID: "bookingID is required",
	}, form.Errors)
}

func TestCheckInForm_ConfirmDetail_RejectsBadCounts(t *testing.T) {
	form, err := detailForm(t).ConfirmDetail(FormInput{Fields: map[string]string{
		FieldName:   "Jane",
		FieldRooms:  "-2",
		FieldGuests: "lots",
	}})
	require.NoError(t, err)

	assert.False(t, form.Submitting)
	assert.Equal(t, "rooms must be at least 1", form.Errors[FieldRooms])
	assert.Equal(t, "guests must be a whole number", form.Errors[FieldGuests])
}

func TestCheckInForm_ConfirmDetail_Submits(t *testing.T) {
	form, err := detailForm(t).ConfirmDetail(FormInput{Fields: map[string]string{
		FieldName:  "Jane",
		FieldRooms: "2",
	}})
	require.NoError(t, err)

	assert.True(t, form.Submitting)
	assert.Empty(t, form.Errors)
	assert.Equal(t, 2, form.Draft.Rooms)

	_, err = form.ConfirmDetail(FormInput{})
	assert.ErrorIs(t, err, ErrSubmitting)
	_, err = form.SetField(FieldName, "Joe")
	assert.ErrorIs(t, err, ErrSubmitting)
}

func TestCheckInForm_FailKeepsDraft(t *testing.T) {
	submitting, err := detailForm(t).ConfirmDetail(FormInput{Fields: map[string]string{FieldName: "Jane"}})
	require.NoError(t, err)

	failed := submitting.Fail("")
	assert.False(t, failed.Submitting)
	assert.Equal(t, StageDetail, failed.Stage)
	assert.Equal(t, submitFailedNotice, failed.Notice)
	assert.Equal(t, "Jane", failed.Draft.Name)

	assert.Empty(t, failed.DismissNotice().Notice)
}

func TestCheckInForm_CancelResetsDraft(t *testing.T) {
	form, err := detailForm(t).SetField(FieldName, "Jane")
	require.NoError(t, err)

	closed := form.Cancel(testNow)
	assert.Equal(t, StageClosed, closed.Stage)
	assert.Equal(t, DefaultDraft(testNow), closed.Draft)
	assert.Empty(t, closed.Errors)
	assert.Equal(t, form.Generation+1, closed.Generation)

	reopened := closed.Open(testNow)
	assert.Empty(t, reopened.Draft.Title)
	assert.Nil(t, reopened.Draft.Image)
	assert.Equal(t, "Jane", form.Draft.Name)
}

func TestCheckInForm_MethodsLeaveReceiverUntouched(t *testing.T) {
	form, err := NewCheckInForm(testNow).Open(testNow).ConfirmBasic(FormInput{})
	require.NoError(t, err)
	before := form.Errors.clone()

	_, err = form.ConfirmBasic(FormInput{Fields: map[string]string{FieldTitle: "x"}, Image: pngImage("b.png")})
	require.NoError(t, err)
	_ = form.RejectImage("too big")

	assert.Equal(t, before, form.Errors)
	assert.Equal(t, StageBasicInfo, form.Stage)
}

func TestValidateDraft(t *testing.T) {
	draft := DefaultDraft(testNow)
	draft.Title = "Sea View"
	draft.Name = "Jane"
	draft.Image = pngImage("a.png")
	assert.Empty(t, ValidateDraft(draft))

	draft.Rooms = 0
	draft.BookedDate = "01/05/2024"
	assert.Equal(t, FieldErrors{
		FieldRooms:      "rooms is required",
		FieldBookedDate: "bookedDate must be a date (YYYY-MM-DD)",
	}, ValidateDraft(draft))
}
