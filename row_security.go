package jobs

import (
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Row security criteria scope every query and mutation to rows owned by the
// caller. Admins holding the admin scope match everything. The same criteria
// run on read, update, and delete paths, and a miss is always reported as
// ErrNotFoundOrForbidden so callers cannot tell absent rows from foreign
// ones.

// OwnershipCriteria restricts a query to rows owned by the principal. The
// returned criteria composes with any additional filters via q.Apply.
func OwnershipCriteria(p *Principal) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		if p.IsAdminWithScope() {
			return q
		}
		return q.Where("?TableAlias.user_id = ?", p.UserID)
	}
}

// ByIDAndOwnership matches a single row by id, still subject to ownership.
func ByIDAndOwnership(id uuid.UUID, p *Principal) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Where("?TableAlias.id = ?", id)
		if p.IsAdminWithScope() {
			return q
		}
		return q.Where("?TableAlias.user_id = ?", p.UserID)
	}
}
