package pg

import (
	"context"
	"encoding/json"

	"smartlotto.org/internal/audit"
)

type changeLogs struct {
	q queryer
}

// AppendChangeLog inserts entry and stores the assigned log_id back into it.
func (c changeLogs) AppendChangeLog(ctx context.Context, entry *audit.Entry) error {
	err := c.q.QueryRowContext(ctx, `
		insert into change_logs(entity_name, action, entity_id, before_data, after_data, user_id, enterprise_id, change_time)
		values ($1,$2,$3,$4::jsonb,$5::jsonb,$6,$7,$8)
		returning log_id
	`, string(entry.Entity), string(entry.Action), entry.EntityID,
		nullJSON(entry.Before), nullJSON(entry.After),
		entry.UserID, entry.EnterpriseID, entry.ChangeTime,
	).Scan(&entry.ID)
	return classify("pg.change_log.append", err)
}

// ListChangeLogs returns the tenant's entries, newest first.
func (c changeLogs) ListChangeLogs(ctx context.Context, enterpriseID int64, f audit.Filter) ([]audit.Entry, int, error) {
	const op = "pg.change_log.list"
	page := f.Page.Normalize()
	const where = `where enterprise_id=$1 and ($2 = '' or entity_name=$2) and ($3 = 0 or entity_id=$3)`

	var total int
	if err := c.q.QueryRowContext(ctx, `select count(*) from change_logs `+where,
		enterpriseID, string(f.Entity), f.EntityID,
	).Scan(&total); err != nil {
		return nil, 0, classify(op, err)
	}

	rows, err := c.q.QueryContext(ctx, `
		select log_id, entity_name, action, entity_id, before_data, after_data, user_id, enterprise_id, change_time
		from change_logs `+where+`
		order by log_id desc
		limit $4 offset $5
	`, enterpriseID, string(f.Entity), f.EntityID, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, classify(op, err)
	}
	defer rows.Close()

	var res []audit.Entry
	for rows.Next() {
		var (
			e             audit.Entry
			entity, act   string
			before, after []byte
		)
		if err := rows.Scan(&e.ID, &entity, &act, &e.EntityID, &before, &after, &e.UserID, &e.EnterpriseID, &e.ChangeTime); err != nil {
			return nil, 0, classify(op, err)
		}
		e.Entity, e.Action = audit.Entity(entity), audit.Action(act)
		if before != nil {
			e.Before = json.RawMessage(before)
		}
		if after != nil {
			e.After = json.RawMessage(after)
		}
		res = append(res, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, classify(op, err)
	}
	return res, total, nil
}

func nullJSON(raw json.RawMessage) any {
	if raw == nil {
		return nil
	}
	return string(raw)
}
