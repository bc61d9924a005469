package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Comment is a reader response attached to a story.
type Comment struct {
	Base    `bson:",inline"`
	Story   primitive.ObjectID `json:"story"   bson:"story"`
	Author  primitive.ObjectID `json:"author"  bson:"author"`
	Content string             `json:"content" bson:"content"`
}
