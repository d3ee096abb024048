package jobs

import (
	"context"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// StatusHistory validates and records mutations to tracked applications.
// Every status change appends exactly one immutable StatusEvent; no event is
// ever edited, and no-op updates leave the history untouched.
type StatusHistory struct {
	repo   RepositoryManager
	logger Logger
}

func NewStatusHistory(repo RepositoryManager, logger Logger) *StatusHistory {
	if logger == nil {
		logger = defLogger{}
	}
	return &StatusHistory{
		repo:   repo,
		logger: logger,
	}
}

// requiredJobFields runs the presence checks in a fixed order and reports
// the first missing field only. Enum fields must also belong to their closed
// value sets; anything outside is rejected, never coerced.
func requiredJobFields(job *Job) error {
	checks := []struct {
		name    string
		present bool
	}{
		{"contract", job.Contract != ""},
		{"offerStatus", job.OfferStatus != ""},
		{"workMode", job.WorkMode != ""},
		{"workTime", job.WorkTime != ""},
		{"company", job.Company != ""},
		{"city", job.City != ""},
		{"position", job.Position != ""},
	}

	for _, check := range checks {
		if !check.present {
			return MissingRequiredField(check.name)
		}
	}

	memberships := []struct {
		name  string
		value string
		valid bool
	}{
		{"contract", string(job.Contract), job.Contract.Valid()},
		{"offerStatus", string(job.OfferStatus), job.OfferStatus.Valid()},
		{"workMode", string(job.WorkMode), job.WorkMode.Valid()},
		{"workTime", string(job.WorkTime), job.WorkTime.Valid()},
	}

	for _, check := range memberships {
		if !check.valid {
			return InvalidFieldValue(check.name, check.value)
		}
	}

	return nil
}

// normalizeInitialStatus rewrites terminal offer statuses on creation of a
// listing the user applied to informally. An application cannot start out
// accepted or declined unless it tracks an official listing the user already
// heard back on.
func normalizeInitialStatus(job *Job) {
	if job.OfficialListing {
		return
	}

	switch job.OfferStatus {
	case OfferAccepted:
		job.OfferStatus = OfferInProgress
	case OfferDeclined:
		job.OfferStatus = OfferRejected
	}
}

// RegisterJob creates a tracked application and appends its first status
// event, both inside one transaction.
//
// Ownership: the row belongs to the caller unless an admin explicitly
// supplies another owner. A non-admin supplying a foreign owner is silently
// overridden to self, not rejected.
func (s *StatusHistory) RegisterJob(ctx context.Context, p *Principal, job *Job) (*Job, error) {
	if err := requiredJobFields(job); err != nil {
		return nil, err
	}

	if !p.IsAdminWithScope() || job.UserID == uuid.Nil {
		job.UserID = p.UserID
	}

	normalizeInitialStatus(job)

	if job.ApplicationDate == nil {
		now := time.Now()
		job.ApplicationDate = &now
	}

	var created *Job
	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.checkOwnerExists(ctx, tx, p, job.UserID); err != nil {
			return err
		}

		record, err := s.repo.Jobs().CreateTx(ctx, tx, job)
		if err != nil {
			return err
		}

		if err := s.repo.Jobs().AppendStatusEventTx(ctx, tx, NewStatusEvent(record)); err != nil {
			return err
		}

		created = record
		return nil
	})

	if err != nil {
		return nil, err
	}

	return created, nil
}

// UpdateJob applies incoming changes to an owned row. The persisted offer
// status is re-read inside the update transaction; when it differs from the
// incoming one, exactly one new StatusEvent is appended. Unchanged statuses
// append nothing.
func (s *StatusHistory) UpdateJob(ctx context.Context, p *Principal, id uuid.UUID, incoming *Job) (*Job, error) {
	if err := requiredJobFields(incoming); err != nil {
		return nil, err
	}

	var updated *Job
	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := s.repo.Jobs().FindOwnedTx(ctx, tx, id, p)
		if err != nil {
			return err
		}

		previousStatus, err := s.repo.Jobs().CurrentOfferStatusTx(ctx, tx, current.ID)
		if err != nil {
			return err
		}

		current.Position = incoming.Position
		current.Description = incoming.Description
		current.Company = incoming.Company
		current.City = incoming.City
		current.Contract = incoming.Contract
		current.WorkTime = incoming.WorkTime
		current.WorkMode = incoming.WorkMode
		current.OfferStatus = incoming.OfferStatus
		current.OfficialListing = incoming.OfficialListing

		if incoming.ApplicationDate != nil {
			current.ApplicationDate = incoming.ApplicationDate
		}

		// Ownership survives updates unless an admin reassigns it explicitly.
		if p.IsAdminWithScope() && incoming.UserID != uuid.Nil {
			if err := s.checkOwnerExists(ctx, tx, p, incoming.UserID); err != nil {
				return err
			}
			current.UserID = incoming.UserID
		}

		record, err := s.repo.Jobs().UpdateTx(ctx, tx, current)
		if err != nil {
			return err
		}

		if record.OfferStatus != previousStatus {
			if err := s.repo.Jobs().AppendStatusEventTx(ctx, tx, NewStatusEvent(record)); err != nil {
				return err
			}
		}

		updated = record
		return nil
	})

	if err != nil {
		return nil, err
	}

	return updated, nil
}

// checkOwnerExists verifies an admin-assigned owner before a row is written
// under it. The caller's own identity is already authenticated, so only a
// reassignment to somebody else needs the lookup. A dangling owner fails the
// same way a foreign row does.
func (s *StatusHistory) checkOwnerExists(ctx context.Context, tx bun.Tx, p *Principal, ownerID uuid.UUID) error {
	if ownerID == p.UserID {
		return nil
	}

	if _, err := s.repo.Users().GetByIDTx(ctx, tx, ownerID); err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrNotFoundOrForbidden
		}
		return err
	}

	return nil
}

// DeleteJob removes an owned row together with its status events.
func (s *StatusHistory) DeleteJob(ctx context.Context, p *Principal, id uuid.UUID) error {
	return s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := s.repo.Jobs().FindOwnedTx(ctx, tx, id, p)
		if err != nil {
			return err
		}

		return s.repo.Jobs().DeleteTx(ctx, tx, current)
	})
}

// GetJob fetches one owned row with its ordered event chain.
func (s *StatusHistory) GetJob(ctx context.Context, p *Principal, id uuid.UUID) (*Job, error) {
	return s.repo.Jobs().FindOwned(ctx, id, p)
}

// SearchJobs runs a predicate-filtered paged search scoped to the caller.
func (s *StatusHistory) SearchJobs(ctx context.Context, p *Principal, filter JobSearchFilter, page, size int) (*JobPage, error) {
	return s.repo.Jobs().Search(ctx, p, filter, page, size)
}

// BucketCounts folds the caller's per-status counts into the dashboard
// buckets. Every bucket is present in the result, zero valued when empty.
func (s *StatusHistory) BucketCounts(ctx context.Context, p *Principal) (map[DashboardBucket]int64, error) {
	byStatus, err := s.repo.Jobs().StatusCounts(ctx, p)
	if err != nil {
		return nil, err
	}

	counts := map[DashboardBucket]int64{}
	for _, bucket := range DashboardBuckets() {
		var total int64
		for _, status := range BucketOfferStatuses(bucket) {
			total += byStatus[status]
		}
		counts[bucket] = total
	}

	return counts, nil
}

// CountBucket counts the caller's rows in a single dashboard bucket.
func (s *StatusHistory) CountBucket(ctx context.Context, p *Principal, bucket DashboardBucket) (int64, error) {
	var total int64
	for _, status := range BucketOfferStatuses(bucket) {
		n, err := s.repo.Jobs().CountByOfferStatus(ctx, p, status)
		if err != nil {
			return 0, err
		}
		total += n
	}

	return total, nil
}
