package jobs

import (
	"context"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// JobSearchFilter carries the optional search predicates. Every predicate
// composes with the caller's row security criteria; none of them can widen
// visibility.
type JobSearchFilter struct {
	Contract      Contract    `json:"contract,omitempty"`
	WorkMode      WorkMode    `json:"workMode,omitempty"`
	WorkTime      WorkTime    `json:"workTime,omitempty"`
	OfferStatus   OfferStatus `json:"offerStatus,omitempty"`
	OfficialOnly  bool        `json:"officialOnly,omitempty"`
	CreatedAfter  *time.Time  `json:"createdAfter,omitempty"`
	CreatedBefore *time.Time  `json:"createdBefore,omitempty"`
	Text          string      `json:"text,omitempty"`
	Sort          string      `json:"sort,omitempty"`
}

// Criteria translates the filter into a composable select criteria.
func (f JobSearchFilter) Criteria() repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		if f.Contract != "" {
			q = q.Where("?TableAlias.contract = ?", f.Contract)
		}
		if f.WorkMode != "" {
			q = q.Where("?TableAlias.work_mode = ?", f.WorkMode)
		}
		if f.WorkTime != "" {
			q = q.Where("?TableAlias.work_time = ?", f.WorkTime)
		}
		if f.OfferStatus != "" {
			q = q.Where("?TableAlias.offer_status = ?", f.OfferStatus)
		}
		if f.OfficialOnly {
			q = q.Where("?TableAlias.official_listing = ?", true)
		}
		if f.CreatedAfter != nil {
			q = q.Where("?TableAlias.created_at >= ?", f.CreatedAfter)
		}
		if f.CreatedBefore != nil {
			q = q.Where("?TableAlias.created_at <= ?", f.CreatedBefore)
		}
		if text := strings.TrimSpace(f.Text); text != "" {
			pattern := "%" + strings.ToLower(text) + "%"
			q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.
					WhereOr("LOWER(?TableAlias.position) LIKE ?", pattern).
					WhereOr("LOWER(?TableAlias.company) LIKE ?", pattern).
					WhereOr("LOWER(?TableAlias.city) LIKE ?", pattern).
					WhereOr("LOWER(?TableAlias.description) LIKE ?", pattern)
			})
		}
		return q
	}
}

// sortCriteria resolves the caller facing sort tokens. Anything unknown
// falls back to newest-first.
func sortCriteria(token string) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		switch strings.ToUpper(strings.TrimSpace(token)) {
		case "A-Z":
			return q.Order("position ASC")
		case "Z-A":
			return q.Order("position DESC")
		case "DATE_ASC":
			return q.Order("updated_at ASC", "created_at ASC")
		default:
			return q.Order("updated_at DESC", "created_at DESC")
		}
	}
}

// JobPage is one page of search results.
type JobPage struct {
	Items      []*Job `json:"items"`
	Page       int    `json:"page"`
	Size       int    `json:"size"`
	TotalItems int    `json:"total_items"`
	TotalPages int    `json:"total_pages"`
}

// StatusCount pairs an offer status with how many rows carry it.
type StatusCount struct {
	OfferStatus OfferStatus `bun:"offer_status"`
	Count       int64       `bun:"status_count"`
}

// Jobs is the tracked-application repository surface.
type Jobs interface {
	CreateTx(ctx context.Context, tx bun.IDB, job *Job) (*Job, error)
	FindOwned(ctx context.Context, id uuid.UUID, p *Principal) (*Job, error)
	FindOwnedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, p *Principal) (*Job, error)
	CurrentOfferStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (OfferStatus, error)
	UpdateTx(ctx context.Context, tx bun.IDB, job *Job) (*Job, error)
	DeleteTx(ctx context.Context, tx bun.IDB, job *Job) error
	AppendStatusEventTx(ctx context.Context, tx bun.IDB, event *StatusEvent) error
	Search(ctx context.Context, p *Principal, filter JobSearchFilter, page, size int) (*JobPage, error)
	StatusCounts(ctx context.Context, p *Principal) (map[OfferStatus]int64, error)
	CountByOfferStatus(ctx context.Context, p *Principal, status OfferStatus) (int64, error)
}

type jobsRepo struct {
	repository.Repository[*Job]
	db *bun.DB
}

var _ Jobs = (*jobsRepo)(nil)

func NewJobsRepository(db *bun.DB) Jobs {
	repo := repository.NewRepository[*Job](db, repository.ModelHandlers[*Job]{
		NewRecord: func() *Job { return &Job{} },
		GetID: func(j *Job) uuid.UUID {
			if j == nil {
				return uuid.Nil
			}
			return j.ID
		},
		SetID: func(j *Job, id uuid.UUID) {
			if j != nil {
				j.ID = id
			}
		},
		GetIdentifier: func() string { return "id" },
	})

	return &jobsRepo{
		Repository: repo,
		db:         db,
	}
}

func (r *jobsRepo) CreateTx(ctx context.Context, tx bun.IDB, job *Job) (*Job, error) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	return r.Repository.CreateTx(ctx, tx, job)
}

func (r *jobsRepo) FindOwned(ctx context.Context, id uuid.UUID, p *Principal) (*Job, error) {
	return r.FindOwnedTx(ctx, r.db, id, p)
}

// FindOwnedTx fetches one row through the ownership criteria. A missing row
// and a foreign row produce the same ErrNotFoundOrForbidden.
func (r *jobsRepo) FindOwnedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, p *Principal) (*Job, error) {
	record := &Job{}
	q := tx.NewSelect().
		Model(record).
		Relation("StatusEvents", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("created_at ASC")
		}).
		Apply(ByIDAndOwnership(id, p))

	if err := q.Limit(1).Scan(ctx); err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrNotFoundOrForbidden
		}
		return nil, err
	}

	return record, nil
}

// CurrentOfferStatusTx reads the persisted offer status inside the caller's
// transaction so update paths compare against committed state.
func (r *jobsRepo) CurrentOfferStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (OfferStatus, error) {
	var status OfferStatus
	err := tx.NewSelect().
		Model((*Job)(nil)).
		Column("offer_status").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx, &status)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return "", ErrNotFoundOrForbidden
		}
		return "", err
	}

	return status, nil
}

func (r *jobsRepo) UpdateTx(ctx context.Context, tx bun.IDB, job *Job) (*Job, error) {
	now := time.Now()
	job.UpdatedAt = &now
	return r.Repository.UpdateTx(ctx, tx, job, repository.UpdateByID(job.ID.String()))
}

// DeleteTx removes the job and its status events together. Events are not
// independently reachable, so the cascade is explicit here.
func (r *jobsRepo) DeleteTx(ctx context.Context, tx bun.IDB, job *Job) error {
	if _, err := tx.NewDelete().
		Model((*StatusEvent)(nil)).
		Where("job_id = ?", job.ID).
		Exec(ctx); err != nil {
		return err
	}

	_, err := tx.NewDelete().
		Model((*Job)(nil)).
		Where("id = ?", job.ID).
		Exec(ctx)

	return err
}

func (r *jobsRepo) AppendStatusEventTx(ctx context.Context, tx bun.IDB, event *StatusEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	_, err := tx.NewInsert().Model(event).Exec(ctx)
	return err
}

func (r *jobsRepo) Search(ctx context.Context, p *Principal, filter JobSearchFilter, page, size int) (*JobPage, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 20
	}

	count, err := r.db.NewSelect().
		Model((*Job)(nil)).
		Apply(OwnershipCriteria(p)).
		Apply(filter.Criteria()).
		Count(ctx)
	if err != nil {
		return nil, err
	}

	items := []*Job{}
	err = r.db.NewSelect().
		Model(&items).
		Relation("StatusEvents", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("created_at ASC")
		}).
		Apply(OwnershipCriteria(p)).
		Apply(filter.Criteria()).
		Apply(sortCriteria(filter.Sort)).
		Limit(size).
		Offset(page * size).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	totalPages := count / size
	if count%size > 0 {
		totalPages++
	}

	return &JobPage{
		Items:      items,
		Page:       page,
		Size:       size,
		TotalItems: count,
		TotalPages: totalPages,
	}, nil
}

// StatusCounts groups the caller's rows by offer status server-side.
func (r *jobsRepo) StatusCounts(ctx context.Context, p *Principal) (map[OfferStatus]int64, error) {
	rows := []StatusCount{}
	err := r.db.NewSelect().
		Model((*Job)(nil)).
		ColumnExpr("?TableAlias.offer_status AS offer_status").
		ColumnExpr("COUNT(*) AS status_count").
		Apply(OwnershipCriteria(p)).
		Group("offer_status").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	counts := make(map[OfferStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.OfferStatus] = row.Count
	}

	return counts, nil
}

func (r *jobsRepo) CountByOfferStatus(ctx context.Context, p *Principal, status OfferStatus) (int64, error) {
	count, err := r.db.NewSelect().
		Model((*Job)(nil)).
		Apply(OwnershipCriteria(p)).
		Where("?TableAlias.offer_status = ?", status).
		Count(ctx)

	return int64(count), err
}
