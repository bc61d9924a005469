package story

import (
	"github.com/himlearning/storyhub/internal/models"
	"github.com/himlearning/storyhub/internal/pkg/apperr"
	"go.mongodb.org/mongo-driver/bson"
)

// CanRead decides whether v may read s. Anonymous readers of user-tier
// stories get Unauthenticated; everyone but the author and admins gets
// Forbidden on private stories.
func CanRead(s *models.Story, v models.Viewer) error {
	switch s.Privacy {
	case models.PrivacyPublic, "":
		return nil
	case models.PrivacyUser:
		if !v.IsAuthenticated() {
			return apperr.Unauthenticated("Sign in to read this story.")
		}
		return nil
	default:
		if v.Owns(s.Author) || v.IsAdmin() {
			return nil
		}
		return apperr.Forbidden("This story is private.")
	}
}

// CanEdit allows the author and administrators.
func CanEdit(s *models.Story, v models.Viewer) error {
	if !v.IsAuthenticated() {
		return apperr.Unauthenticated("Please sign in first.")
	}
	if v.Owns(s.Author) || v.IsAdmin() {
		return nil
	}
	return apperr.Forbidden("Only the author can change this story.")
}

// ListFilter is the query predicate equivalent of CanRead.
func ListFilter(v models.Viewer) bson.M {
	switch {
	case v.IsAdmin():
		return bson.M{}
	case v.IsAuthenticated():
		return bson.M{"$or": bson.A{
			bson.M{"privacy": models.PrivacyPublic},
			bson.M{"privacy": models.PrivacyUser},
			bson.M{"privacy": models.PrivacyPrivate, "author": v.ID},
		}}
	default:
		return bson.M{"privacy": models.PrivacyPublic}
	}
}

func sortSpec(s Sort) bson.D {
	if s == SortNewest {
		return bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
	}
	return bson.D{
		{Key: "likeCount", Value: -1},
		{Key: "commentCount", Value: -1},
		{Key: "createdAt", Value: -1},
	}
}
