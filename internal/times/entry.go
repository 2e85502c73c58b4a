package times

import (
	"time"

	"github.com/michaelsproul/website/internal/store"
)

// Collection is the name of the backing collection for timesheet entries.
const Collection = "timesheet_entries"

// Entry is a single work-log record. ID is empty until the entry has been
// persisted, the store assigns one on insert. Breaks is in minutes.
type Entry struct {
	ID        string    `json:"id,omitempty"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Breaks    int       `json:"breaks"`
	Morning   string    `json:"morning"`
	Afternoon string    `json:"afternoon"`
}

// NewEntry returns an unsaved entry covering a default eight hour day.
func NewEntry() Entry {
	now := time.Now().Truncate(time.Second)
	return Entry{
		Start: now,
		End:   now.Add(8 * time.Hour),
	}
}

var _ store.Codec[Entry] = Codec{}

// Codec maps entries onto their document form:
// id (absent until saved), start, end (RFC3339), breaks, morning, afternoon.
// Timestamps are encoded with nanosecond precision so a decode gives back
// exactly the instant that was encoded.
type Codec struct{}

func (Codec) Encode(e Entry) store.Document {
	doc := store.Document{
		"start":     e.Start.Format(time.RFC3339Nano),
		"end":       e.End.Format(time.RFC3339Nano),
		"breaks":    int64(e.Breaks),
		"morning":   e.Morning,
		"afternoon": e.Afternoon,
	}
	if e.ID != "" {
		doc["id"] = e.ID
	}
	return doc
}

func (Codec) Decode(doc store.Document) (Entry, error) {
	// id is optional: a document being prepared for insert has none yet
	id, _ := doc.Str("id")

	start, err := doc.Time("start")
	if err != nil {
		return Entry{}, err
	}
	end, err := doc.Time("end")
	if err != nil {
		return Entry{}, err
	}
	if end.Before(start) {
		return Entry{}, &store.FieldError{Field: "end", Reason: "is before 'start'"}
	}

	breaks, err := doc.Int("breaks")
	if err != nil {
		return Entry{}, err
	}
	if breaks < 0 {
		return Entry{}, &store.FieldError{Field: "breaks", Reason: "is negative"}
	}

	morning, err := doc.Str("morning")
	if err != nil {
		return Entry{}, err
	}
	afternoon, err := doc.Str("afternoon")
	if err != nil {
		return Entry{}, err
	}

	return Entry{
		ID:        id,
		Start:     start,
		End:       end,
		Breaks:    int(breaks),
		Morning:   morning,
		Afternoon: afternoon,
	}, nil
}
