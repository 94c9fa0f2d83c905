package engagement

import "errors"

var (
	// ErrEmptyText indicates the pan or comment text is empty or whitespace
	ErrEmptyText = errors.New("text is required")

	// ErrAlreadyLiked indicates the actor already has a like on the pan
	ErrAlreadyLiked = errors.New("pan already liked")

	// ErrNotLiked indicates the actor has no like on the pan to remove
	ErrNotLiked = errors.New("pan has not yet been liked")

	// ErrCommentNotFound indicates no comment with the requested id exists on the pan
	ErrCommentNotFound = errors.New("comment does not exist")

	// ErrNotCommentOwner indicates the actor did not write the comment
	ErrNotCommentOwner = errors.New("not the comment author")
)
