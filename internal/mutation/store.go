// Package mutation implements the audited, tenant-scoped create/update/delete
// flow shared by every back-office resource. Each mutation and its change log
// entry commit in one transaction.
package mutation

import (
	"context"

	"smartlotto.org/internal/audit"
	"smartlotto.org/internal/paging"
)

// Record is a stored row that belongs to exactly one tenant.
type Record interface {
	RecordID() int64
	TenantID() int64
}

// Patch is a partial update. An empty patch is rejected before any read.
type Patch interface {
	IsEmpty() bool
}

// TenantClaimer is implemented by inputs that may name an enterprise_id.
// Zero means the input does not claim one.
type TenantClaimer interface {
	ClaimedEnterprise() int64
}

// Table is the per-entity persistence surface. Every lookup is keyed by
// (tenantID, id); a row owned by another tenant is reported as NotFound.
type Table[T Record, C any, P Patch] interface {
	Find(ctx context.Context, tenantID, id int64) (T, error)
	Insert(ctx context.Context, actor audit.Actor, in C) (T, error)
	Update(ctx context.Context, actor audit.Actor, id int64, patch P) (T, error)
	Delete(ctx context.Context, tenantID, id int64) (T, error)
	List(ctx context.Context, tenantID int64, page paging.Request) ([]T, int, error)
}

// Tx is a Table bound to an open transaction that can also append change log rows.
type Tx[T Record, C any, P Patch] interface {
	Table[T, C, P]
	audit.Appender
}

// Store opens transactions over a Table. InTx commits when fn returns nil and
// rolls back otherwise.
type Store[T Record, C any, P Patch] interface {
	Table[T, C, P]
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx[T, C, P]) error) error
}
