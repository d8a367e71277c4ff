package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"checkin-dashboard/models"

	"github.com/gabriel-vasile/mimetype"
)

// Form field names. They double as document field names and as keys of the
// error map.
const (
	FieldTitle      = "title"
	FieldName       = "name"
	FieldImage      = "uploadedFile"
	FieldBookingID  = "bookingID"
	FieldRooms      = "rooms"
	FieldGuests     = "guests"
	FieldBookedDate = "bookedDate"
)

const (
	DefaultBookingID = "12345678"
	DefaultRooms     = 4
	DefaultGuests    = 4
)

const submitFailedNotice = "The check-in could not be saved. Check your connection and press OK to try again."

type FormStage string

const (
	StageClosed    FormStage = "closed"
	StageBasicInfo FormStage = "collectingBasicInfo"
	StageDetail    FormStage = "collectingDetail"
)

// FieldErrors maps a field name to its validation message.
type FieldErrors map[string]string

func (e FieldErrors) clone() FieldErrors {
	out := make(FieldErrors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// CheckInDraft is the record being typed into the form.
type CheckInDraft struct {
	Title      string            `json:"title"`
	Name       string            `json:"name"`
	BookingID  string            `json:"bookingID"`
	Rooms      int               `json:"rooms"`
	Guests     int               `json:"guests"`
	BookedDate string            `json:"bookedDate"`
	Image      *models.ImageFile `json:"image,omitempty"`
}

// DefaultDraft is what the form holds right after it opens.
func DefaultDraft(now time.Time) CheckInDraft {
	return CheckInDraft{
		BookingID:  DefaultBookingID,
		Rooms:      DefaultRooms,
		Guests:     DefaultGuests,
		BookedDate: now.Format(models.DateLayout),
	}
}

// Record is the in-memory record the draft describes, image still unresolved.
func (d CheckInDraft) Record() models.CheckInRecord {
	return models.CheckInRecord{
		Title:      d.Title,
		Name:       d.Name,
		BookingID:  d.BookingID,
		Rooms:      d.Rooms,
		Guests:     d.Guests,
		BookedDate: d.BookedDate,
		Image:      models.ImageRef{File: d.Image},
	}
}

// FormInput carries the values submitted with a step confirmation. Fields
// absent from the map keep their current draft value; a nil Image keeps the
// attached one.
type FormInput struct {
	Fields map[string]string
	Image  *models.ImageFile
}

// CheckInForm is the two-step check-in modal. Every method returns a new form
// and leaves the receiver untouched.
//
// Generation changes whenever the form is opened or closed, so a save started
// under one generation can tell that the form it belonged to is gone.
// ImageVersion counts the images attached within a generation.
type CheckInForm struct {
	Stage        FormStage    `json:"stage"`
	Draft        CheckInDraft `json:"draft"`
	Errors       FieldErrors  `json:"errors"`
	Notice       string       `json:"notice,omitempty"`
	Submitting   bool         `json:"submitting"`
	Generation   int          `json:"generation"`
	ImageVersion int          `json:"imageVersion"`
}

// NewCheckInForm returns a closed form holding the defaults.
func NewCheckInForm(now time.Time) CheckInForm {
	return CheckInForm{
		Stage:  StageClosed,
		Draft:  DefaultDraft(now),
		Errors: FieldErrors{},
	}
}

func (f CheckInForm) clone() CheckInForm {
	out := f
	out.Errors = f.Errors.clone()
	return out
}

// IsOpen reports whether the modal is showing either step.
func (f CheckInForm) IsOpen() bool {
	return f.Stage == StageBasicInfo || f.Stage == StageDetail
}

// Open shows step one with a fresh draft.
func (f CheckInForm) Open(now time.Time) CheckInForm {
	return CheckInForm{
		Stage:      StageBasicInfo,
		Draft:      DefaultDraft(now),
		Errors:     FieldErrors{},
		Generation: f.Generation + 1,
	}
}

// Cancel discards the draft and closes the modal.
func (f CheckInForm) Cancel(now time.Time) CheckInForm {
	return CheckInForm{
		Stage:      StageClosed,
		Draft:      DefaultDraft(now),
		Errors:     FieldErrors{},
		Generation: f.Generation + 1,
	}
}

// Complete closes the modal after a successful save.
func (f CheckInForm) Complete(now time.Time) CheckInForm {
	return f.Cancel(now)
}

// editableAt lists the fields each step shows.
var editableAt = map[FormStage]map[string]bool{
	StageBasicInfo: {FieldTitle: true},
	StageDetail: {
		FieldName:       true,
		FieldBookingID:  true,
		FieldRooms:      true,
		FieldGuests:     true,
		FieldBookedDate: true,
	},
}

// SetField stores one typed value. Counts are parsed on every change; a value
// that is not a whole number is stored as 0 and flagged so the draft cannot
// pass validation.
func (f CheckInForm) SetField(name, value string) (CheckInForm, error) {
	if !isKnownField(name) {
		return f, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	if f.Submitting {
		return f, ErrSubmitting
	}
	if !editableAt[f.Stage][name] {
		return f, fmt.Errorf("%w: %s at %s", ErrFieldNotEditable, name, f.Stage)
	}

	out := f.clone()
	delete(out.Errors, name)

	switch name {
	case FieldTitle:
		out.Draft.Title = value
	case FieldName:
		out.Draft.Name = value
	case FieldBookingID:
		out.Draft.BookingID = value
	case FieldRooms, FieldGuests:
		n, err := parseCount(value)
		if err != nil {
			out.Errors[name] = name + " must be a whole number"
		}
		if name == FieldRooms {
			out.Draft.Rooms = n
		} else {
			out.Draft.Guests = n
		}
	case FieldBookedDate:
		date, err := normalizeDate(value)
		if err != nil {
			out.Draft.BookedDate = strings.TrimSpace(value)
			out.Errors[name] = "bookedDate must be a date (YYYY-MM-DD)"
		} else {
			out.Draft.BookedDate = date
		}
	}
	return out, nil
}

// AttachImage replaces the draft image. The previous image bytes are dropped
// with the old draft, which also retires its preview.
func (f CheckInForm) AttachImage(file *models.ImageFile) (CheckInForm, error) {
	if !f.IsOpen() {
		return f, ErrWrongStage
	}
	if f.Submitting {
		return f, ErrSubmitting
	}
	out := f.clone()
	if file == nil || len(file.Data) == 0 {
		out.Errors[FieldImage] = "Image is required"
		return out, nil
	}

	mime := mimetype.Detect(file.Data)
	if !strings.HasPrefix(mime.String(), "image/") {
		out.Errors[FieldImage] = "Only image files can be uploaded"
		return out, nil
	}

	attached := *file
	attached.ContentType = mime.String()
	out.Draft.Image = &attached
	out.ImageVersion = f.ImageVersion + 1
	delete(out.Errors, FieldImage)
	return out, nil
}

// RejectImage flags the image field without touching the attached file.
func (f CheckInForm) RejectImage(message string) CheckInForm {
	out := f.clone()
	out.Errors[FieldImage] = message
	return out
}

// ConfirmBasic is the "Add" button of step one: title and image must be
// present before the detail step opens.
func (f CheckInForm) ConfirmBasic(in FormInput) (CheckInForm, error) {
	if f.Stage != StageBasicInfo {
		return f, ErrWrongStage
	}

	out, parseErrs, err := f.apply(in)
	if err != nil {
		return f, err
	}

	errs := FieldErrors{}
	if strings.TrimSpace(out.Draft.Title) == "" {
		errs[FieldTitle] = "Title is required"
	}
	if out.Draft.Image == nil || len(out.Draft.Image.Data) == 0 {
		errs[FieldImage] = "Image is required"
	}
	for k, v := range parseErrs {
		errs[k] = v
	}

	if len(errs) > 0 {
		out.Errors = errs
		return out, nil
	}
	out.Stage = StageDetail
	out.Errors = FieldErrors{}
	return out, nil
}

// ConfirmDetail is the "OK" button of step two. The whole draft is checked,
// not just the detail fields. A valid draft is marked as submitting.
func (f CheckInForm) ConfirmDetail(in FormInput) (CheckInForm, error) {
	if f.Stage != StageDetail {
		return f, ErrWrongStage
	}
	if f.Submitting {
		return f, ErrSubmitting
	}

	out, parseErrs, err := f.apply(in)
	if err != nil {
		return f, err
	}

	errs := ValidateDraft(out.Draft)
	for k, v := range parseErrs {
		errs[k] = v
	}
	if len(errs) > 0 {
		out.Errors = errs
		return out, nil
	}

	out.Errors = FieldErrors{}
	out.Notice = ""
	out.Submitting = true
	return out, nil
}

// Fail reopens a submitting form for another try and shows notice. Nothing the
// user typed is lost.
func (f CheckInForm) Fail(notice string) CheckInForm {
	out := f.clone()
	out.Submitting = false
	if notice == "" {
		notice = submitFailedNotice
	}
	out.Notice = notice
	return out
}

func (f CheckInForm) DismissNotice() CheckInForm {
	out := f.clone()
	out.Notice = ""
	return out
}

// apply copies the submitted values into a clone and collects the parse
// failures among them.
func (f CheckInForm) apply(in FormInput) (CheckInForm, FieldErrors, error) {
	for name := range in.Fields {
		if !isKnownField(name) {
			return f, nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
	}

	out := f.clone()
	out.Errors = FieldErrors{}
	for _, name := range orderedFields {
		value, ok := in.Fields[name]
		if !ok {
			continue
		}
		next, err := out.SetField(name, value)
		if err != nil {
			return f, nil, err
		}
		out = next
	}

	if in.Image != nil {
		next, err := out.AttachImage(in.Image)
		if err != nil {
			return f, nil, err
		}
		out = next
	}
	return out, out.Errors.clone(), nil
}

// ValidateDraft reports every missing or malformed field of a draft.
func ValidateDraft(d CheckInDraft) FieldErrors {
	errs := FieldErrors{}
	required := func(field string, missing bool) {
		if missing {
			errs[field] = field + " is required"
		}
	}

	required(FieldTitle, strings.TrimSpace(d.Title) == "")
	required(FieldName, strings.TrimSpace(d.Name) == "")
	required(FieldImage, d.Image == nil || len(d.Image.Data) == 0)
	required(FieldBookingID, strings.TrimSpace(d.BookingID) == "")

	for field, n := range map[string]int{FieldRooms: d.Rooms, FieldGuests: d.Guests} {
		switch {
		case n == 0:
			required(field, true)
		case n < 0:
			errs[field] = field + " must be at least 1"
		}
	}

	switch {
	case strings.TrimSpace(d.BookedDate) == "":
		required(FieldBookedDate, true)
	default:
		if _, err := time.Parse(models.DateLayout, d.BookedDate); err != nil {
			errs[FieldBookedDate] = "bookedDate must be a date (YYYY-MM-DD)"
		}
	}
	return errs
}

var orderedFields = []string{FieldTitle, FieldName, FieldBookingID, FieldRooms, FieldGuests, FieldBookedDate}

func isKnownField(name string) bool {
	for _, f := range orderedFields {
		if f == name {
			return true
		}
	}
	return false
}

func parseCount(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// normalizeDate accepts YYYY-MM-DD or RFC3339 and returns YYYY-MM-DD.
func normalizeDate(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	if t, err := time.Parse(models.DateLayout, value); err == nil {
		return t.Format(models.DateLayout), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return "", err
	}
	return t.Format(models.DateLayout), nil
}
