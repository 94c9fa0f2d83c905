package engagement

import "github.com/cppla/pans/models"

// CanDeletePan reports whether actorID may delete the pan. Only the author can;
// likes and comments go with it.
func CanDeletePan(pan *models.Pan, actorID string) bool {
	return pan != nil && actorID != "" && pan.AuthorID == actorID
}

// CanDeleteComment reports whether actorID wrote the comment. Authoring the
// parent pan grants nothing here.
func CanDeleteComment(comment *models.Comment, actorID string) bool {
	return comment != nil && actorID != "" && comment.AuthorID == actorID
}
