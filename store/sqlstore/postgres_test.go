package sqlstore

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	pmsGuard "github.com/MrEthical07/pmsGuard"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(db, Postgres), mock
}

func TestRebind(t *testing.T) {
	got := Postgres.rebind(`UPDATE t SET a = ? WHERE b = ? AND c = ?`)
	if got != `UPDATE t SET a = $1 WHERE b = $2 AND c = $3` {
		t.Fatalf("unexpected rebind %q", got)
	}
	if q := SQLite.rebind(`SELECT ?`); q != `SELECT ?` {
		t.Fatalf("sqlite must keep placeholders, got %q", q)
	}
}

func TestParseDialect(t *testing.T) {
	for in, want := range map[string]Dialect{"postgres": Postgres, "PGX": Postgres, "sqlite3": SQLite, " sqlite ": SQLite} {
		got, err := ParseDialect(in)
		if err != nil || got != want {
			t.Fatalf("%q: got %q, %v", in, got, err)
		}
	}
	if _, err := ParseDialect("mysql"); err == nil {
		t.Fatalf("expected error for mysql")
	}
}

func TestPostgresGetPrincipalQueryShape(t *testing.T) {
	s, mock := newMockStore(t)

	q := `(?s)^SELECT\s+id,\s*email,.*FROM\s+principals\s+WHERE\s+id\s*=\s*\$1$`
	rows := sqlmock.NewRows([]string{"id", "email", "name", "role", "is_active", "password_hash", "totp_enabled", "totp_secret"}).
		AddRow("p-1", "anna@hotel.test", "Anna", "reception", true, "hash", false, "")
	mock.ExpectQuery(q).WithArgs("p-1").WillReturnRows(rows)

	got, err := s.GetPrincipal(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("GetPrincipal: %v", err)
	}
	if got.Email != "anna@hotel.test" || !got.IsActive {
		t.Fatalf("unexpected principal %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresTransitionCommitsOnSuccess(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE guest_tokens SET state = $1 WHERE token = $2 AND state = $3`)).
		WithArgs("completed", "tok-1", "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM guest_tokens WHERE token = \$1`).
		WithArgs("tok-1").
		WillReturnRows(sqlmock.NewRows([]string{"token", "resource_type", "resource_id", "state", "expires_at", "created_at", "projection"}).
			AddRow("tok-1", "payment", "folio-1", "completed", int64(0), int64(0), `{"payment":{"amountCents":15000,"currency":"EUR"}}`))
	mock.ExpectCommit()

	got, err := s.TransitionGuestToken(context.Background(), "tok-1", pmsGuard.GuestPending, pmsGuard.GuestCompleted)
	if err != nil {
		t.Fatalf("TransitionGuestToken: %v", err)
	}
	if got.State != pmsGuard.GuestCompleted || got.Payment == nil || got.Payment.AmountCents != 15000 {
		t.Fatalf("unexpected token %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresTransitionConflictRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE guest_tokens`).
		WithArgs("completed", "tok-1", "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM guest_tokens`).
		WithArgs("tok-1").
		WillReturnRows(sqlmock.NewRows([]string{"token", "resource_type", "resource_id", "state", "expires_at", "created_at", "projection"}).
			AddRow("tok-1", "payment", "folio-1", "completed", int64(0), int64(0), `{}`))
	mock.ExpectRollback()

	_, err := s.TransitionGuestToken(context.Background(), "tok-1", pmsGuard.GuestPending, pmsGuard.GuestCompleted)
	if !errors.Is(err, pmsGuard.ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresAuthDisabledStoreError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT auth_disabled FROM hotel_config WHERE id = \$1`).
		WithArgs("default").
		WillReturnError(errors.New("connection reset"))

	if _, err := s.AuthDisabled(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
