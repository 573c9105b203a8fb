package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type User struct {
	ID           int64     `json:"id"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	Constituency string    `json:"constituency,omitempty"`
	ProfileImage string    `json:"profileImage,omitempty"`
	Role         Role      `json:"role"`
	Enabled      bool      `json:"enabled"`
	CreatedAt    Timestamp `json:"createdAt"`
}

func (u User) Initials() string {
	fields := strings.Fields(u.FullName)
	if len(fields) == 0 {
		return "U"
	}
	initials := make([]rune, 0, 2)
	for _, f := range fields {
		initials = append(initials, []rune(f)[0])
		if len(initials) == 2 {
			break
		}
	}
	return strings.ToUpper(string(initials))
}

type Issue struct {
	ID                     int64       `json:"id"`
	Title                  string      `json:"title"`
	Description            string      `json:"description"`
	Category               string      `json:"category"`
	Location               string      `json:"location"`
	Status                 IssueStatus `json:"status"`
	Response               string      `json:"response,omitempty"`
	ResolutionNotes        string      `json:"resolutionNotes,omitempty"`
	ResolvedAt             *Timestamp  `json:"resolvedAt,omitempty"`
	CreatedAt              Timestamp   `json:"createdAt"`
	CitizenID              int64       `json:"citizenId"`
	CitizenName            string      `json:"citizenName"`
	AssignedPoliticianID   *int64      `json:"assignedPoliticianId,omitempty"`
	AssignedPoliticianName string      `json:"assignedPoliticianName,omitempty"`
	CommentCount           int         `json:"commentCount"`
}

type Comment struct {
	ID         int64     `json:"id"`
	IssueID    int64     `json:"issueId"`
	UserID     int64     `json:"userId"`
	UserName   string    `json:"userName"`
	UserRole   Role      `json:"userRole"`
	Content    string    `json:"content"`
	Flagged    bool      `json:"flagged"`
	FlagReason string    `json:"flagReason,omitempty"`
	CreatedAt  Timestamp `json:"createdAt"`
}

type Update struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	Category       string    `json:"category"`
	ImageURL       string    `json:"imageUrl,omitempty"`
	Published      bool      `json:"published"`
	ViewCount      int       `json:"viewCount"`
	PoliticianID   int64     `json:"politicianId"`
	PoliticianName string    `json:"politicianName"`
	CreatedAt      Timestamp `json:"createdAt"`
}

type Feedback struct {
	ID             int64     `json:"id"`
	CitizenID      int64     `json:"citizenId"`
	CitizenName    string    `json:"citizenName"`
	PoliticianID   int64     `json:"politicianId"`
	PoliticianName string    `json:"politicianName"`
	Rating         int       `json:"rating"`
	Category       string    `json:"category,omitempty"`
	Comment        string    `json:"comment,omitempty"`
	CreatedAt      Timestamp `json:"createdAt"`
}

type IssueStats struct {
	Open       int64 `json:"open"`
	InProgress int64 `json:"inProgress"`
	Resolved   int64 `json:"resolved"`
	Closed     int64 `json:"closed"`
}

type UserStats struct {
	TotalCitizens    int64 `json:"totalCitizens"`
	TotalPoliticians int64 `json:"totalPoliticians"`
	TotalModerators  int64 `json:"totalModerators"`
	TotalAdmins      int64 `json:"totalAdmins"`
}

type PoliticianStats struct {
	AverageRating float64 `json:"averageRating"`
	TotalFeedback int64   `json:"totalFeedback"`
}

type UploadedFile struct {
	Filename        string `json:"filename"`
	FileDownloadURI string `json:"fileDownloadUri"`
	FileType        string `json:"fileType"`
	Size            string `json:"size"`
}

type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Timestamp decodes the zone-less local date-times the API emits as well as
// RFC 3339 values.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("decode timestamp: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("decode timestamp: unsupported format %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}
