package photoapi

import (
	"strings"
	"time"
)

// PhotoResult mirrors one record of GET /photos.
type PhotoResult struct {
	ID          string     `json:"id"`
	Width       int        `json:"width"`
	Height      int        `json:"height"`
	CreatedAt   *string    `json:"created_at"`
	Description *string    `json:"description"`
	AltText     *string    `json:"alt_description"`
	URLs        PhotoURLs  `json:"urls"`
	LikedByUser bool       `json:"liked_by_user"`
	Likes       int        `json:"likes"`
	User        *UserBrief `json:"user"`
}

// PhotoURLs lists the renditions the service offers for a photo.
type PhotoURLs struct {
	Thumb   string `json:"thumb"`
	Regular string `json:"regular"`
	Full    string `json:"full"`
}

// UserBrief is the author block embedded in a photo record.
type UserBrief struct {
	Username string `json:"username"`
	Name     string `json:"name"`
}

// MeResponse mirrors GET /me.
type MeResponse struct {
	Username  string  `json:"username"`
	Name      *string `json:"name"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Bio       *string `json:"bio"`
}

// UserResponse mirrors the subset of GET /users/{username} shutter reads.
type UserResponse struct {
	ProfileImage struct {
		Small  string `json:"small"`
		Medium string `json:"medium"`
	} `json:"profile_image"`
}

// Photo is the feed's view of a photo record.
type Photo struct {
	ID          string
	Width       int
	Height      int
	CreatedAt   *time.Time
	Description string
	ThumbURL    string
	FullURL     string
	Liked       bool
	Likes       int
	Author      string
}

// Photo converts the wire record into the feed type.
func (r PhotoResult) Photo() Photo {
	p := Photo{
		ID:       r.ID,
		Width:    r.Width,
		Height:   r.Height,
		ThumbURL: r.URLs.Thumb,
		FullURL:  r.URLs.Full,
		Liked:    r.LikedByUser,
		Likes:    r.Likes,
	}
	if r.CreatedAt != nil {
		if t := parseTime(*r.CreatedAt); !t.IsZero() {
			p.CreatedAt = &t
		}
	}
	switch {
	case r.Description != nil && strings.TrimSpace(*r.Description) != "":
		p.Description = strings.TrimSpace(*r.Description)
	case r.AltText != nil:
		p.Description = strings.TrimSpace(*r.AltText)
	}
	if r.User != nil {
		p.Author = r.User.Username
	}
	return p
}

// AspectRatio returns width over height, or 0 when height is unknown.
func (p Photo) AspectRatio() float64 {
	if p.Height <= 0 {
		return 0
	}
	return float64(p.Width) / float64(p.Height)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
