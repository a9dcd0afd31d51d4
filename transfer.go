package bboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// civilDateLayout is the wire format for calendar dates. Posts carry a day,
// never a time of day.
const civilDateLayout = "2006-01-02"

// Date is a calendar date on the wire, encoded as "YYYY-MM-DD". The zero
// value marshals to JSON null.
type Date struct {
	Time  time.Time
	Valid bool
}

func NewDate(t time.Time) Date {
	return Date{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), Valid: true}
}

func (d Date) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Time.Format(civilDateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		*d = Date{}
		return nil
	}
	t, err := time.Parse(civilDateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	*d = Date{Time: t, Valid: true}
	return nil
}

func (d Date) pg() pgtype.Date {
	return pgtype.Date{Time: d.Time, Valid: d.Valid}
}

func dateFromPg(d pgtype.Date) Date {
	return Date{Time: d.Time, Valid: d.Valid}
}

// Transfer objects: the flattened wire representation of the entity graph.
// They carry forward references only; back-references are implied by
// nesting and rebuilt by the converter.

type UserTransfer struct {
	ID       int64             `json:"id,omitempty"`
	Name     string            `json:"name"`
	Login    string            `json:"login"`
	Password string            `json:"password"`
	Email    string            `json:"email"`
	Role     Role              `json:"role"`
	Posts    []PostTransfer    `json:"posts"`
	Topics   []TopicTransfer   `json:"topics"`
	Comments []CommentTransfer `json:"comments"`
}

type PostTransfer struct {
	ID       int64             `json:"id,omitempty"`
	Message  string            `json:"message"`
	Date     Date              `json:"date"`
	Pics     []PicTransfer     `json:"pics"`
	Comments []CommentTransfer `json:"comments"`

	// MessageHTML is the sanitized markdown rendering of Message. Output
	// only; ignored on input.
	MessageHTML string `json:"message_html,omitempty"`
}

type PicTransfer struct {
	ID        int64  `json:"id,omitempty"`
	Caption   string `json:"caption"`
	ImageLink string `json:"image_link"`
}

type CommentTransfer struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
}

type TopicTransfer struct {
	ID    int64          `json:"id,omitempty"`
	Name  string         `json:"name"`
	Tags  []TagTransfer  `json:"tags"`
	Forum *ForumTransfer `json:"forum"`
	Posts []PostTransfer `json:"posts,omitempty"`
}

type TagTransfer struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
}

type ForumTransfer struct {
	ID      int64            `json:"id,omitempty"`
	Name    string           `json:"name"`
	Section *SectionTransfer `json:"section"`
}

type SectionTransfer struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
}
