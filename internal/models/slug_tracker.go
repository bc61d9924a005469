package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// SlugTracker remembers a slug a document used to have.
type SlugTracker struct {
	Base     `bson:",inline"`
	Slug     string             `json:"slug"      bson:"slug"`
	Type     string             `json:"type"      bson:"type"`
	TargetID primitive.ObjectID `json:"target_id" bson:"targetId"`
}
