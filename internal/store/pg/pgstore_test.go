package pg

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"smartlotto.org/internal/apperr"
	"smartlotto.org/internal/audit"
	"smartlotto.org/internal/auth"
	"smartlotto.org/internal/backoffice"
	"smartlotto.org/internal/mutation"
	"smartlotto.org/internal/paging"
)

var customerCols = []string{"customer_id", "customer_name", "customer_code", "customer_email", "enterprise_id"}

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func TestCustomerCreateAuditsInSameTransaction(t *testing.T) {
	store, mock := newMock(t)
	res := mutation.New(audit.EntityCustomer, store.Customers())
	actor := audit.Actor{UserID: 1, EnterpriseID: 1}

	mock.ExpectBegin()
	mock.ExpectQuery(`insert into customers\(customer_name, customer_code, customer_email, enterprise_id\) values\(\$1, \$2, \$3, \$4\) returning customer_id`).
		WithArgs("John Doe", "JD123", "john@example.com", int64(1)).
		WillReturnRows(sqlmock.NewRows(customerCols).AddRow(5, "John Doe", "JD123", "john@example.com", 1))
	mock.ExpectQuery(`insert into change_logs`).
		WithArgs("Customer", "create", int64(5), nil, sqlmock.AnyArg(), int64(1), int64(1), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"log_id"}).AddRow(11))
	mock.ExpectCommit()

	c, err := res.Create(context.Background(), actor, backoffice.CustomerInput{Name: "John Doe", Code: "JD123", Email: "john@example.com"})
	require.NoError(t, err)
	require.Equal(t, int64(5), c.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditFailureRollsBack(t *testing.T) {
	store, mock := newMock(t)
	res := mutation.New(audit.EntityCustomer, store.Customers())

	mock.ExpectBegin()
	mock.ExpectQuery(`insert into customers`).
		WillReturnRows(sqlmock.NewRows(customerCols).AddRow(5, "John Doe", "JD123", "john@example.com", 1))
	mock.ExpectQuery(`insert into change_logs`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := res.Create(context.Background(), audit.Actor{UserID: 1, EnterpriseID: 1},
		backoffice.CustomerInput{Name: "John Doe", Code: "JD123", Email: "john@example.com"})
	require.ErrorIs(t, err, apperr.ErrAudit)
	require.Equal(t, apperr.KindAudit, apperr.KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateLocksTenantRowFirst(t *testing.T) {
	store, mock := newMock(t)
	res := mutation.New(audit.EntityCustomer, store.Customers())
	actor := audit.Actor{UserID: 3, EnterpriseID: 1}
	email := "jd@example.com"

	mock.ExpectBegin()
	mock.ExpectQuery(`select customer_id, .* from customers where customer_id=\$1 and enterprise_id=\$2 for update`).
		WithArgs(int64(5), int64(1)).
		WillReturnRows(sqlmock.NewRows(customerCols).AddRow(5, "John Doe", "JD123", "john@example.com", 1))
	mock.ExpectQuery(`update customers set customer_email=\$1 where customer_id=\$2 and enterprise_id=\$3 returning`).
		WithArgs(email, int64(5), int64(1)).
		WillReturnRows(sqlmock.NewRows(customerCols).AddRow(5, "John Doe", "JD123", email, 1))
	mock.ExpectQuery(`insert into change_logs`).
		WithArgs("Customer", "update", int64(5), sqlmock.AnyArg(), sqlmock.AnyArg(), int64(3), int64(1), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"log_id"}).AddRow(12))
	mock.ExpectCommit()

	c, err := res.Update(context.Background(), actor, 5, backoffice.CustomerPatch{Email: &email})
	require.NoError(t, err)
	require.Equal(t, email, c.Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteForeignRowIsNotFound(t *testing.T) {
	store, mock := newMock(t)
	res := mutation.New(audit.EntityCustomer, store.Customers())

	mock.ExpectBegin()
	mock.ExpectQuery(`from customers where customer_id=\$1 and enterprise_id=\$2 for update`).
		WithArgs(int64(5), int64(2)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := res.Delete(context.Background(), audit.Actor{UserID: 1, EnterpriseID: 2}, 5)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRejectsForeignCustomer(t *testing.T) {
	store, mock := newMock(t)
	res := mutation.New(audit.EntityOrder, store.Orders())

	mock.ExpectBegin()
	mock.ExpectQuery(`select 1 from customers where customer_id=\$1 and enterprise_id=\$2`).
		WithArgs(int64(9), int64(1)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := res.Create(context.Background(), audit.Actor{UserID: 1, EnterpriseID: 1}, backoffice.OrderInput{
		CustomerID: 9, TotalPrice: "10.00", OrderStatus: "Pending", PaymentStatus: "Unpaid",
	})
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListCustomers(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(`select count\(\*\) from customers where enterprise_id=\$1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`from customers where enterprise_id=\$1 order by customer_id limit \$2 offset \$3`).
		WithArgs(int64(1), 2, 2).
		WillReturnRows(sqlmock.NewRows(customerCols).AddRow(3, "C", "C1", "c@example.com", 1))

	rows, total, err := store.Customers().List(context.Background(), 1, paging.Request{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, rows, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeLogListing(t *testing.T) {
	store, mock := newMock(t)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`select count\(\*\) from change_logs where enterprise_id=\$1`).
		WithArgs(int64(1), "Customer", int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`order by log_id desc`).
		WithArgs(int64(1), "Customer", int64(5), paging.DefaultLimit, 0).
		WillReturnRows(sqlmock.NewRows([]string{"log_id", "entity_name", "action", "entity_id", "before_data", "after_data", "user_id", "enterprise_id", "change_time"}).
			AddRow(11, "Customer", "create", 5, nil, []byte(`{"customer_name":"John Doe"}`), 1, 1, at))

	entries, total, err := store.ChangeLogs().ListChangeLogs(context.Background(), 1, audit.Filter{Entity: audit.EntityCustomer, EntityID: 5})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, audit.ActionCreate, entries[0].Action)
	require.Nil(t, entries[0].Before)
	require.JSONEq(t, `{"customer_name":"John Doe"}`, string(entries[0].After))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreateDuplicateIsConflict(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(`insert into users`).
		WithArgs("alice@example.com", "Alice", "hash", int64(1)).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	err := store.Users().Create(context.Background(), &auth.User{Email: "alice@example.com", Name: "Alice", PasswordHash: "hash", EnterpriseID: 1})
	require.ErrorIs(t, err, apperr.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserFindMissingIsNotFound(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(`from users where user_email=\$1`).
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Users().FindByEmail(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLotteryCreateDefaultsStatus(t *testing.T) {
	store, mock := newMock(t)
	res := mutation.New(audit.EntityLottery, store.Lotteries())
	draw := time.Date(2024, 7, 16, 8, 30, 0, 0, time.UTC)
	cols := []string{"lottery_id", "lottery_name", "draw_date", "status", "enterprise_id", "last_modified_by"}

	mock.ExpectBegin()
	mock.ExpectQuery(`insert into lotteries\(lottery_name, draw_date, status, enterprise_id, last_modified_by\) values\(\$1, \$2, \$3, \$4, \$5\)`).
		WithArgs("Weekly", sqlmock.AnyArg(), "scheduled", int64(1), int64(3)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(9, "Weekly", draw, "scheduled", 1, 3))
	mock.ExpectQuery(`insert into change_logs`).
		WithArgs("Lottery", "create", int64(9), nil, sqlmock.AnyArg(), int64(3), int64(1), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"log_id"}).AddRow(12))
	mock.ExpectCommit()

	l, err := res.Create(context.Background(), audit.Actor{UserID: 3, EnterpriseID: 1},
		backoffice.LotteryInput{Name: "Weekly", DrawDate: draw})
	require.NoError(t, err)
	require.Equal(t, int64(9), l.ID)
	require.Equal(t, "scheduled", l.Status)
	require.True(t, draw.Equal(l.DrawDate))
	require.NoError(t, mock.ExpectationsWereMet())
}
