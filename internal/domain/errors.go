package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrAccessDenied means the user may not work any review queue, or not this one.
	ErrAccessDenied = errors.New("not an authorized reviewer")
	// ErrAssociationNotFound means the article is not linked to the topic.
	ErrAssociationNotFound = errors.New("article-topic association not found")
	// ErrTopicNotAssigned means the reviewer may not record decisions for the topic.
	ErrTopicNotAssigned = errors.New("topic is not assigned to the reviewer")
	// ErrStateChanged means the association has left the queue's state since the decision was queued.
	ErrStateChanged = errors.New("article is no longer waiting in this queue")
)

// UnknownQueueTypeError reports a queue type outside the fixed set.
type UnknownQueueTypeError struct {
	Name string
}

func (e *UnknownQueueTypeError) Error() string {
	return fmt.Sprintf("unknown queue type %q", e.Name)
}

// UnknownStateError reports a state missing from the catalog.
type UnknownStateError struct {
	Name string
	ID   int64
}

func (e *UnknownStateError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("unknown state id %d", e.ID)
	}
	return fmt.Sprintf("unknown state %q", e.Name)
}

// InvalidDecisionCodeError reports a decision code with no mapping for the queue type.
type InvalidDecisionCodeError struct {
	QueueType QueueType
	Code      Decision
}

func (e *InvalidDecisionCodeError) Error() string {
	return fmt.Sprintf("decision code %d is not valid for %s", e.Code, e.QueueType)
}
