package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a registered account.
type User struct {
	Base                    `bson:",inline"`
	Username                string               `json:"username"        bson:"username"`
	Email                   string               `json:"email"           bson:"email"`
	Password                string               `json:"-"               bson:"password"`
	Photo                   string               `json:"photo"           bson:"photo"`
	PhotoID                 string               `json:"-"               bson:"photoId,omitempty"`
	Role                    Role                 `json:"role"            bson:"role"`
	IsEmailVerified         bool                 `json:"isEmailVerified" bson:"isEmailVerified"`
	EmailVerificationToken  string               `json:"-"               bson:"emailVerificationToken,omitempty"`
	EmailVerificationExpire *time.Time           `json:"-"               bson:"emailVerificationExpire,omitempty"`
	ResetPasswordToken      string               `json:"-"               bson:"resetPasswordToken,omitempty"`
	ResetPasswordExpire     *time.Time           `json:"-"               bson:"resetPasswordExpire,omitempty"`
	ReadList                []primitive.ObjectID `json:"readList"        bson:"readList"`
	ReadListLength          int                  `json:"readListLength"  bson:"readListLength"`
}

// Viewer returns the request identity for this account.
func (u *User) Viewer() Viewer {
	return Viewer{ID: u.ID, Role: u.Role}
}

// UserSummary is the public projection of a user embedded in other responses.
type UserSummary struct {
	ID       primitive.ObjectID `json:"id"       bson:"_id"`
	Username string             `json:"username" bson:"username"`
	Photo    string             `json:"photo"    bson:"photo"`
}
