package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AnnouncementVisibility controls who may see an announcement.
type AnnouncementVisibility string

const (
	AnnouncementPublic AnnouncementVisibility = "public"
	AnnouncementUsers  AnnouncementVisibility = "users"
)

// DefaultExpiresTime is the end-of-day cutoff applied when none is given.
const DefaultExpiresTime = "23:59"

// Announcement is a site-wide notice published by an administrator.
type Announcement struct {
	Base        `bson:",inline"`
	Title       string                 `json:"title"       bson:"title"`
	Content     string                 `json:"content"     bson:"content"`
	IsActive    bool                   `json:"isActive"    bson:"isActive"`
	Visibility  AnnouncementVisibility `json:"visibility"  bson:"visibility"`
	ExpiresAt   *time.Time             `json:"expiresAt"   bson:"expiresAt"`
	ExpiresTime string                 `json:"expiresTime" bson:"expiresTime"`
	Author      primitive.ObjectID     `json:"author"      bson:"author"`
}

// Expiry returns the instant the announcement stops being shown, combining
// the expiry date with the HH:MM cutoff in loc. ok is false when it never expires.
func (a *Announcement) Expiry(loc *time.Location) (time.Time, bool) {
	if a.ExpiresAt == nil {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	d := a.ExpiresAt.In(loc)
	if t, err := time.Parse("15:04", a.ExpiresTime); err == nil {
		return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, loc), true
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, int(time.Second-time.Millisecond), loc), true
}

// LiveAt reports whether the announcement is active and unexpired at now.
func (a *Announcement) LiveAt(now time.Time, loc *time.Location) bool {
	if !a.IsActive {
		return false
	}
	end, ok := a.Expiry(loc)
	return !ok || !now.After(end)
}
