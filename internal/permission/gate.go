// Package permission decides which queues a reviewer may work and which
// topics they may record decisions for.
package permission

import (
	"ReviewQueue/internal/domain"
	"ReviewQueue/internal/ports"
)

// defaultQueuePriority is checked in order when a fresh queue is created.
var defaultQueuePriority = []struct {
	permission string
	queueType  domain.QueueType
}{
	{domain.PermAbstractReview, domain.AbstractReview},
	{domain.PermInitialReview, domain.LibrarianReview},
}

// UserPermissions checks the permission set loaded on the user record.
type UserPermissions struct{}

var _ ports.PermissionChecker = UserPermissions{}

// HasPermission implements ports.PermissionChecker.
func (UserPermissions) HasPermission(user domain.User, permission string) bool {
	return user.HasPermission(permission)
}

// Gate is a pure predicate over users, queue types and topics.
type Gate struct {
	checker ports.PermissionChecker
}

// NewGate wires the permission predicate; nil falls back to UserPermissions.
func NewGate(checker ports.PermissionChecker) *Gate {
	if checker == nil {
		checker = UserPermissions{}
	}
	return &Gate{checker: checker}
}

// AuthorizedQueueTypes lists the queue types the user may work, in display order.
func (g *Gate) AuthorizedQueueTypes(user domain.User) ([]domain.QueueType, error) {
	var out []domain.QueueType
	for _, qt := range domain.QueueTypes {
		if g.authorizedFor(user, qt) {
			out = append(out, qt)
		}
	}
	if len(out) == 0 {
		return nil, domain.ErrAccessDenied
	}
	return out, nil
}

// DefaultQueueType picks the queue a fresh specification starts on.
func (g *Gate) DefaultQueueType(user domain.User) (domain.QueueType, error) {
	for _, candidate := range defaultQueuePriority {
		if g.checker.HasPermission(user, candidate.permission) {
			return candidate.queueType, nil
		}
	}
	types, err := g.AuthorizedQueueTypes(user)
	if err != nil {
		return "", err
	}
	return types[0], nil
}

// Authorize fails with ErrAccessDenied unless the user may work the queue type.
func (g *Gate) Authorize(user domain.User, qt domain.QueueType) error {
	if _, err := qt.Permission(); err != nil {
		return err
	}
	if !g.authorizedFor(user, qt) {
		return domain.ErrAccessDenied
	}
	return nil
}

// Mine reports whether the topic falls under the user's assignments.
func (g *Gate) Mine(user domain.User, topic domain.Topic) bool {
	return g.checker.HasPermission(user, domain.PermAllTopics) ||
		user.AssignedToTopic(topic.ID) ||
		user.AssignedToBoard(topic.BoardID)
}

// CanDecideTopic reports whether decision buttons may be offered for the topic.
// Librarian review is open to every qualified reviewer; the other queues need
// an assignment unless the user holds the all-topics permission.
func (g *Gate) CanDecideTopic(user domain.User, topic domain.Topic, qt domain.QueueType) bool {
	if !g.authorizedFor(user, qt) {
		return false
	}
	if qt == domain.LibrarianReview {
		return true
	}
	return g.Mine(user, topic)
}

func (g *Gate) authorizedFor(user domain.User, qt domain.QueueType) bool {
	perm, err := qt.Permission()
	if err != nil {
		return false
	}
	return g.checker.HasPermission(user, perm)
}
