package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// DateLayout is the wire format of bookedDate.
const DateLayout = "2006-01-02"

// CheckIn is one document of the checkin collection.
type CheckIn struct {
	ID           string         `gorm:"primaryKey;size:36" json:"id"`
	Title        string         `gorm:"size:255;not null" json:"title"`
	Name         string         `gorm:"size:255;not null" json:"name"`
	BookingID    string         `gorm:"column:booking_id;size:64;not null" json:"bookingID"`
	Rooms        int            `gorm:"not null" json:"rooms"`
	Guests       int            `gorm:"not null" json:"guests"`
	BookedDate   datatypes.Date `gorm:"column:booked_date" json:"bookedDate"`
	UploadedFile string         `gorm:"column:uploaded_file;size:1024" json:"uploadedFile"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`
}

func (CheckIn) TableName() string {
	return "checkins"
}

// BookedDateString formats the booked date as YYYY-MM-DD.
func (c CheckIn) BookedDateString() string {
	t := time.Time(c.BookedDate)
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// MarshalJSON keeps bookedDate an ISO date string instead of a timestamp.
func (c CheckIn) MarshalJSON() ([]byte, error) {
	type document CheckIn
	return json.Marshal(struct {
		document
		BookedDate string `json:"bookedDate"`
	}{document(c), c.BookedDateString()})
}

// ToRecord converts the stored document to a listable record.
func (c CheckIn) ToRecord() CheckInRecord {
	return CheckInRecord{
		ID:         c.ID,
		Title:      c.Title,
		Name:       c.Name,
		BookingID:  c.BookingID,
		Rooms:      c.Rooms,
		Guests:     c.Guests,
		BookedDate: c.BookedDateString(),
		Image:      ImageRef{URL: c.UploadedFile},
	}
}
