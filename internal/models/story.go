package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Privacy is the visibility tier of a story.
type Privacy string

const (
	PrivacyPublic  Privacy = "public"
	PrivacyUser    Privacy = "user"
	PrivacyPrivate Privacy = "private"
)

// Valid reports whether p is a known tier.
func (p Privacy) Valid() bool {
	switch p {
	case PrivacyPublic, PrivacyUser, PrivacyPrivate:
		return true
	}
	return false
}

// MediaType is the kind of a story's cover media.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// Story is a user-authored article.
type Story struct {
	Base           `bson:",inline"`
	Author         primitive.ObjectID   `json:"author"         bson:"author"`
	Slug           string               `json:"slug"           bson:"slug"`
	Title          string               `json:"title"          bson:"title"`
	Content        string               `json:"content"        bson:"content"`
	Image          string               `json:"image"          bson:"image"`
	MediaType      MediaType            `json:"mediaType"      bson:"mediaType"`
	MediaID        string               `json:"-"              bson:"mediaId,omitempty"`
	VideoThumbnail *string              `json:"videoThumbnail" bson:"videoThumbnail"`
	VideoDuration  *float64             `json:"videoDuration"  bson:"videoDuration"`
	Readtime       int                  `json:"readtime"       bson:"readtime"`
	Likes          []primitive.ObjectID `json:"likes"          bson:"likes"`
	LikeCount      int                  `json:"likeCount"      bson:"likeCount"`
	Comments       []primitive.ObjectID `json:"comments"       bson:"comments"`
	CommentCount   int                  `json:"commentCount"   bson:"commentCount"`
	Privacy        Privacy              `json:"privacy"        bson:"privacy"`
	IsPaid         bool                 `json:"isPaid"         bson:"isPaid"`
	Price          float64              `json:"price"          bson:"price"`
}

// LikedBy reports whether the user has liked the story.
func (s *Story) LikedBy(id primitive.ObjectID) bool {
	return !id.IsZero() && ContainsID(s.Likes, id)
}
