package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ReviewQueue/internal/domain"
)

// AppliedNotice is shown after a batch has been submitted.
const AppliedNotice = "Queued decisions have been applied."

type decisionInput struct {
	Code domain.Decision `json:"decision" validate:"decision"`
}

// ToggleDecision queues (or with DecisionNone, unqueues) one decision and
// returns the id of the new queue version.
func (q *ReviewQueue) ToggleDecision(ctx context.Context, queueID string, user domain.User, key domain.DecisionKey, d domain.Decision) (string, error) {
	if err := q.validator.Validate(decisionInput{Code: d}); err != nil {
		return "", err
	}
	spec, err := q.load(ctx, queueID, user)
	if err != nil {
		return "", err
	}

	next := spec.Next(queueID)
	if d == domain.DecisionNone {
		delete(next.QueuedDecisions, key)
	} else {
		next.QueuedDecisions[key] = d
	}
	return q.sessions.Save(ctx, next)
}

// WarningView is one skipped decision as shown to the reviewer.
type WarningView struct {
	Key      string          `json:"key"`
	Decision domain.Decision `json:"decision"`
	Message  string          `json:"message"`
}

// SubmitResult reports a submitted batch.
type SubmitResult struct {
	QueueID  string        `json:"id"`
	Applied  int           `json:"applied"`
	Warnings []WarningView `json:"warnings"`
	Notice   string        `json:"notice"`
}

// SubmitDecisions applies the queued decisions merged with the submitted ones
// (submitted entries win) and stores a new queue version with an empty batch.
// When the store fails partway, the new version keeps only the entries that
// were not written, and the error is returned with that version's id.
func (q *ReviewQueue) SubmitDecisions(ctx context.Context, queueID string, user domain.User, submitted map[domain.DecisionKey]domain.Decision, now time.Time) (SubmitResult, error) {
	spec, err := q.load(ctx, queueID, user)
	if err != nil {
		return SubmitResult{}, err
	}

	batch := make(map[domain.DecisionKey]domain.Decision, len(spec.QueuedDecisions)+len(submitted))
	for k, d := range spec.QueuedDecisions {
		batch[k] = d
	}
	for k, d := range submitted {
		batch[k] = d
	}

	res, applyErr := q.decisions.Apply(ctx, spec.QueueType, batch, user, now)
	if applyErr != nil && len(res.Records) == 0 {
		return SubmitResult{}, fmt.Errorf("apply decisions: %w", applyErr)
	}

	next := spec.Next(queueID)
	next.QueuedDecisions = map[domain.DecisionKey]domain.Decision{}
	if applyErr != nil {
		next.QueuedDecisions = batch
		for _, rec := range res.Records {
			delete(next.QueuedDecisions, domain.DecisionKey{ArticleID: rec.ArticleID, TopicID: rec.TopicID})
		}
	}
	id, err := q.sessions.Save(ctx, next)
	if err != nil {
		if applyErr != nil {
			return SubmitResult{}, fmt.Errorf("apply decisions: %w", errors.Join(applyErr, err))
		}
		return SubmitResult{}, err
	}

	warnings := make([]WarningView, 0, len(res.Warnings))
	for _, w := range res.Warnings {
		warnings = append(warnings, WarningView{Key: w.Key.String(), Decision: w.Decision, Message: w.Message()})
	}
	result := SubmitResult{
		QueueID:  id,
		Applied:  res.Applied,
		Warnings: warnings,
	}
	if applyErr != nil {
		return result, fmt.Errorf("apply decisions: %w", applyErr)
	}
	result.Notice = AppliedNotice
	return result, nil
}
