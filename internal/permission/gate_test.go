package permission

import (
	"errors"
	"reflect"
	"testing"

	"ReviewQueue/internal/domain"
)

func userWith(perms ...string) domain.User {
	u := domain.User{ID: 3, Permissions: map[string]bool{}}
	for _, p := range perms {
		u.Permissions[p] = true
	}
	return u
}

func TestAuthorizedQueueTypes(t *testing.T) {
	t.Parallel()

	gate := NewGate(nil)

	types, err := gate.AuthorizedQueueTypes(userWith(domain.PermFullTextReview, domain.PermInitialReview))
	if err != nil {
		t.Fatalf("AuthorizedQueueTypes returned error: %v", err)
	}
	want := []domain.QueueType{domain.LibrarianReview, domain.FullTextReview, domain.OnHoldReview}
	if !reflect.DeepEqual(types, want) {
		t.Fatalf("expected %v, got %v", want, types)
	}

	if _, err := gate.AuthorizedQueueTypes(userWith()); !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}

func TestDefaultQueueType(t *testing.T) {
	t.Parallel()

	gate := NewGate(nil)
	tests := []struct {
		name  string
		user  domain.User
		want  domain.QueueType
		error bool
	}{
		{"abstract wins", userWith(domain.PermInitialReview, domain.PermAbstractReview), domain.AbstractReview, false},
		{"librarian", userWith(domain.PermInitialReview, domain.PermFullTextReview), domain.LibrarianReview, false},
		{"full text only", userWith(domain.PermFullTextReview), domain.FullTextReview, false},
		{"nothing", userWith(domain.PermAllTopics), "", true},
	}

	for _, tt := range tests {
		got, err := gate.DefaultQueueType(tt.user)
		if tt.error {
			if !errors.Is(err, domain.ErrAccessDenied) {
				t.Fatalf("%s: expected ErrAccessDenied, got %v", tt.name, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if got != tt.want {
			t.Fatalf("%s: expected %s, got %s", tt.name, tt.want, got)
		}
	}
}

func TestAuthorize(t *testing.T) {
	t.Parallel()

	gate := NewGate(nil)
	user := userWith(domain.PermFullTextReview)

	if err := gate.Authorize(user, domain.OnHoldReview); err != nil {
		t.Fatalf("on hold review should be allowed: %v", err)
	}
	if err := gate.Authorize(user, domain.AbstractReview); !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}

	var unknown *domain.UnknownQueueTypeError
	if err := gate.Authorize(user, "Lunch Review"); !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownQueueTypeError, got %v", err)
	}
}

func TestMineAndCanDecideTopic(t *testing.T) {
	t.Parallel()

	gate := NewGate(nil)
	user := userWith(domain.PermAbstractReview, domain.PermInitialReview)
	user.Boards = []int64{2}
	user.Topics = []int64{40}

	onBoard := domain.Topic{ID: 10, BoardID: 2}
	assigned := domain.Topic{ID: 40, BoardID: 9}
	foreign := domain.Topic{ID: 50, BoardID: 9}

	if !gate.Mine(user, onBoard) || !gate.Mine(user, assigned) {
		t.Fatalf("board and assigned topics should be mine")
	}
	if gate.Mine(user, foreign) {
		t.Fatalf("foreign topic should not be mine")
	}

	if !gate.CanDecideTopic(user, onBoard, domain.AbstractReview) {
		t.Fatalf("expected decision allowed on own board")
	}
	if gate.CanDecideTopic(user, foreign, domain.AbstractReview) {
		t.Fatalf("expected decision denied on foreign topic")
	}
	if !gate.CanDecideTopic(user, foreign, domain.LibrarianReview) {
		t.Fatalf("librarian review ignores assignments")
	}
	if gate.CanDecideTopic(user, onBoard, domain.FullTextReview) {
		t.Fatalf("not authorized for full text review")
	}

	user.Permissions[domain.PermAllTopics] = true
	if !gate.CanDecideTopic(user, foreign, domain.AbstractReview) {
		t.Fatalf("all-topics permission should allow foreign topics")
	}
}

type denyAll struct{}

func (denyAll) HasPermission(domain.User, string) bool { return false }

func TestGateUsesInjectedChecker(t *testing.T) {
	t.Parallel()

	gate := NewGate(denyAll{})
	if _, err := gate.AuthorizedQueueTypes(userWith(domain.PermAbstractReview)); !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}
