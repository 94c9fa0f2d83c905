package engagement

import (
	"testing"

	"github.com/cppla/pans/models"
)

func TestCanDeletePan(t *testing.T) {
	p := &models.Pan{AuthorID: "alice"}
	if !CanDeletePan(p, "alice") {
		t.Fatalf("author should be able to delete")
	}
	if CanDeletePan(p, "bob") {
		t.Fatalf("non-author must not delete")
	}
	if CanDeletePan(nil, "alice") || CanDeletePan(&models.Pan{}, "") {
		t.Fatalf("empty inputs must not authorize")
	}
}

func TestCanDeleteComment(t *testing.T) {
	c := &models.Comment{AuthorID: "carol"}
	if !CanDeleteComment(c, "carol") {
		t.Fatalf("comment author should be able to delete")
	}
	if CanDeleteComment(c, "alice") {
		t.Fatalf("other users must not delete")
	}
}
