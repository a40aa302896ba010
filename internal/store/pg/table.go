package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"smartlotto.org/internal/apperr"
	"smartlotto.org/internal/audit"
	"smartlotto.org/internal/mutation"
	"smartlotto.org/internal/paging"
)

// column is an insert target. cast is appended to the placeholder.
type column struct {
	name string
	cast string
}

// assign is one "col = value" of an update. raw, when set, is used verbatim
// instead of a placeholder.
type assign struct {
	col  string
	val  any
	cast string
	raw  string
}

// ref is a same-tenant reference that must exist before a write.
type ref struct {
	table string
	col   string
	id    int64
	what  string
}

// entity describes how one resource maps onto its table.
type entity[T mutation.Record, C any, P mutation.Patch] struct {
	name    string
	table   string
	idCol   string
	selects string
	scan    func(scanner) (T, error)

	insertCols []column
	insertArgs func(actor audit.Actor, in C) []any
	insertRefs func(in C) []ref

	patch     func(actor audit.Actor, p P) []assign
	patchRefs func(p P) []ref
}

type table[T mutation.Record, C any, P mutation.Patch] struct {
	db   *sql.DB
	q    queryer
	lock bool
	e    entity[T, C, P]
}

func newTable[T mutation.Record, C any, P mutation.Patch](db *sql.DB, e entity[T, C, P]) *table[T, C, P] {
	return &table[T, C, P]{db: db, q: db, e: e}
}

func (t *table[T, C, P]) op(action string) string { return "pg." + t.e.name + "." + action }

func (t *table[T, C, P]) Find(ctx context.Context, tenantID, id int64) (T, error) {
	query := fmt.Sprintf(`select %s from %s where %s=$1 and enterprise_id=$2`, t.e.selects, t.e.table, t.e.idCol)
	if t.lock {
		query += ` for update`
	}
	rec, err := t.e.scan(t.q.QueryRowContext(ctx, query, id, tenantID))
	return rec, classify(t.op("find"), err)
}

func (t *table[T, C, P]) Insert(ctx context.Context, actor audit.Actor, in C) (T, error) {
	op := t.op("insert")
	var zero T
	if t.e.insertRefs != nil {
		if err := t.checkRefs(ctx, op, actor.EnterpriseID, t.e.insertRefs(in)); err != nil {
			return zero, err
		}
	}
	names := make([]string, len(t.e.insertCols))
	holders := make([]string, len(t.e.insertCols))
	for i, c := range t.e.insertCols {
		names[i] = c.name
		holders[i] = fmt.Sprintf("$%d%s", i+1, c.cast)
	}
	query := fmt.Sprintf(`insert into %s(%s) values(%s) returning %s`,
		t.e.table, strings.Join(names, ", "), strings.Join(holders, ", "), t.e.selects)
	rec, err := t.e.scan(t.q.QueryRowContext(ctx, query, t.e.insertArgs(actor, in)...))
	return rec, classify(op, err)
}

func (t *table[T, C, P]) Update(ctx context.Context, actor audit.Actor, id int64, p P) (T, error) {
	op := t.op("update")
	var zero T
	if t.e.patchRefs != nil {
		if err := t.checkRefs(ctx, op, actor.EnterpriseID, t.e.patchRefs(p)); err != nil {
			return zero, err
		}
	}
	assigns := t.e.patch(actor, p)
	if len(assigns) == 0 {
		return zero, apperr.BadRequest(op, "nothing to update")
	}
	sets := make([]string, 0, len(assigns))
	args := make([]any, 0, len(assigns)+2)
	for _, a := range assigns {
		if a.raw != "" {
			sets = append(sets, a.col+"="+a.raw)
			continue
		}
		args = append(args, a.val)
		sets = append(sets, fmt.Sprintf("%s=$%d%s", a.col, len(args), a.cast))
	}
	args = append(args, id, actor.EnterpriseID)
	query := fmt.Sprintf(`update %s set %s where %s=$%d and enterprise_id=$%d returning %s`,
		t.e.table, strings.Join(sets, ", "), t.e.idCol, len(args)-1, len(args), t.e.selects)
	rec, err := t.e.scan(t.q.QueryRowContext(ctx, query, args...))
	return rec, classify(op, err)
}

func (t *table[T, C, P]) Delete(ctx context.Context, tenantID, id int64) (T, error) {
	query := fmt.Sprintf(`delete from %s where %s=$1 and enterprise_id=$2 returning %s`, t.e.table, t.e.idCol, t.e.selects)
	rec, err := t.e.scan(t.q.QueryRowContext(ctx, query, id, tenantID))
	return rec, classify(t.op("delete"), err)
}

func (t *table[T, C, P]) List(ctx context.Context, tenantID int64, page paging.Request) ([]T, int, error) {
	op := t.op("list")
	page = page.Normalize()
	var total int
	if err := t.q.QueryRowContext(ctx,
		fmt.Sprintf(`select count(*) from %s where enterprise_id=$1`, t.e.table), tenantID,
	).Scan(&total); err != nil {
		return nil, 0, classify(op, err)
	}
	rows, err := t.q.QueryContext(ctx,
		fmt.Sprintf(`select %s from %s where enterprise_id=$1 order by %s limit $2 offset $3`, t.e.selects, t.e.table, t.e.idCol),
		tenantID, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, classify(op, err)
	}
	defer rows.Close()

	var res []T
	for rows.Next() {
		rec, err := t.e.scan(rows)
		if err != nil {
			return nil, 0, classify(op, err)
		}
		res = append(res, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, classify(op, err)
	}
	return res, total, nil
}

// InTx runs fn in a transaction. Reads inside fn lock the rows they return.
func (t *table[T, C, P]) InTx(ctx context.Context, fn func(ctx context.Context, tx mutation.Tx[T, C, P]) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindPersistence, t.op("begin"), err)
	}
	defer func() { _ = tx.Rollback() }()

	bound := &txTable[T, C, P]{
		table: &table[T, C, P]{db: t.db, q: tx, lock: true, e: t.e},
		log:   changeLogs{q: tx},
	}
	if err := fn(ctx, bound); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.KindPersistence, t.op("commit"), err)
	}
	return nil
}

func (t *table[T, C, P]) checkRefs(ctx context.Context, op string, tenantID int64, refs []ref) error {
	for _, r := range refs {
		var one int
		err := t.q.QueryRowContext(ctx,
			fmt.Sprintf(`select 1 from %s where %s=$1 and enterprise_id=$2`, r.table, r.col),
			r.id, tenantID,
		).Scan(&one)
		if err == sql.ErrNoRows {
			return apperr.NotFound(op, r.what+" not found")
		}
		if err != nil {
			return classify(op, err)
		}
	}
	return nil
}

type txTable[T mutation.Record, C any, P mutation.Patch] struct {
	*table[T, C, P]
	log changeLogs
}

func (t *txTable[T, C, P]) AppendChangeLog(ctx context.Context, entry *audit.Entry) error {
	return t.log.AppendChangeLog(ctx, entry)
}
