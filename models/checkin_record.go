package models

// ImageFile is an uploaded image held in memory before it reaches file storage.
type ImageFile struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"data"`
}

// ImageRef points at a check-in image: the resolved URL once uploaded, or the
// in-memory file before that.
type ImageRef struct {
	URL  string     `json:"url,omitempty"`
	File *ImageFile `json:"file,omitempty"`
}

// IsZero reports whether the reference points at nothing renderable.
func (r ImageRef) IsZero() bool {
	return r.URL == "" && (r.File == nil || len(r.File.Data) == 0)
}

// CheckInRecord is one check-in as the dashboard lists it. ID stays empty for
// records only held in memory.
type CheckInRecord struct {
	ID         string   `json:"id,omitempty"`
	Title      string   `json:"title"`
	Name       string   `json:"name"`
	BookingID  string   `json:"bookingID"`
	Rooms      int      `json:"rooms"`
	Guests     int      `json:"guests"`
	BookedDate string   `json:"bookedDate"`
	Image      ImageRef `json:"image"`
}
