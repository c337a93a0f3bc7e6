package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	pmsGuard "github.com/MrEthical07/pmsGuard"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

const settingsRow = "default"

// Store reads and writes the auth tables.
type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

var _ pmsGuard.Store = (*Store)(nil)

// New wraps an open database handle.
func New(db *sql.DB, d Dialect) *Store {
	return &Store{db: db, dialect: d, now: time.Now}
}

// Open connects with the driver for d and verifies the connection.
func Open(ctx context.Context, d Dialect, dsn string) (*Store, error) {
	db, err := sql.Open(d.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open: %w", err)
	}
	if d == SQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: ping: %w", err)
	}
	return New(db, d), nil
}

// DB exposes the underlying handle, e.g. for migrations.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect returns the store's SQL dialect.
func (s *Store) Dialect() Dialect { return s.dialect }

// Migrate applies pending migrations to this store's database.
func (s *Store) Migrate(ctx context.Context) error {
	return Migrate(ctx, s.db, s.dialect)
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) q(query string) string {
	return s.dialect.rebind(query)
}

/*
====================================
PRINCIPALS
====================================
*/

const principalColumns = `id, email, name, role, is_active, password_hash, totp_enabled, totp_secret`

func scanPrincipal(row *sql.Row) (pmsGuard.PrincipalRecord, error) {
	var rec pmsGuard.PrincipalRecord
	err := row.Scan(
		&rec.ID, &rec.Email, &rec.Name, &rec.Role, &rec.IsActive,
		&rec.PasswordHash, &rec.TOTPEnabled, &rec.TOTPSecret,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return pmsGuard.PrincipalRecord{}, pmsGuard.ErrNotFound
	}
	if err != nil {
		return pmsGuard.PrincipalRecord{}, fmt.Errorf("sqlstore: scan principal: %w", err)
	}
	return rec, nil
}

// GetPrincipal implements [pmsGuard.PrincipalStore].
func (s *Store) GetPrincipal(ctx context.Context, id string) (pmsGuard.PrincipalRecord, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+principalColumns+` FROM principals WHERE id = ?`), id)
	return scanPrincipal(row)
}

// GetPrincipalByEmail implements [pmsGuard.PrincipalStore]. Emails are
// stored lower-cased.
func (s *Store) GetPrincipalByEmail(ctx context.Context, email string) (pmsGuard.PrincipalRecord, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+principalColumns+` FROM principals WHERE email = ?`), normalizeEmail(email))
	return scanPrincipal(row)
}

// PutPrincipal inserts or updates a principal by id. An empty ID is
// assigned a random UUID. The stored record is returned.
func (s *Store) PutPrincipal(ctx context.Context, rec pmsGuard.PrincipalRecord) (pmsGuard.PrincipalRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.Email = normalizeEmail(rec.Email)
	rec.TOTPEnabled = rec.TOTPEnabled && rec.TOTPSecret != ""

	_, err := s.db.ExecContext(ctx, s.q(`
INSERT INTO principals (`+principalColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    email = excluded.email,
    name = excluded.name,
    role = excluded.role,
    is_active = excluded.is_active,
    password_hash = excluded.password_hash,
    totp_enabled = excluded.totp_enabled,
    totp_secret = excluded.totp_secret`),
		rec.ID, rec.Email, rec.Name, rec.Role, rec.IsActive,
		rec.PasswordHash, rec.TOTPEnabled, rec.TOTPSecret,
	)
	if err != nil {
		return pmsGuard.PrincipalRecord{}, fmt.Errorf("sqlstore: put principal: %w", err)
	}
	return rec, nil
}

// UpdatePasswordHash stores a rehashed credential for id.
func (s *Store) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE principals SET password_hash = ? WHERE id = ?`), hash, id)
	if err != nil {
		return fmt.Errorf("sqlstore: update password hash: %w", err)
	}
	return requireOneRow(res)
}

/*
====================================
TOTP
====================================
*/

// SaveTOTPSecret implements [pmsGuard.TOTPStore].
func (s *Store) SaveTOTPSecret(ctx context.Context, principalID, secret string) error {
	res, err := s.db.ExecContext(ctx,
		s.q(`UPDATE principals SET totp_enabled = ?, totp_secret = ? WHERE id = ?`),
		true, secret, principalID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: save totp secret: %w", err)
	}
	return requireOneRow(res)
}

// ClearTOTPSecret implements [pmsGuard.TOTPStore]. A principal without a
// second factor reports ErrNotFound.
func (s *Store) ClearTOTPSecret(ctx context.Context, principalID string) error {
	res, err := s.db.ExecContext(ctx,
		s.q(`UPDATE principals SET totp_enabled = ?, totp_secret = '' WHERE id = ? AND totp_enabled = ?`),
		false, principalID, true,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: clear totp secret: %w", err)
	}
	return requireOneRow(res)
}

/*
====================================
PERMISSIONS
====================================
*/

// RolePermissions implements [permission.Source]. Grants on the role's
// group take precedence; the per-role table is read only when the group
// grants nothing.
func (s *Store) RolePermissions(ctx context.Context, role string) ([]string, error) {
	codes, err := s.codes(ctx, `SELECT permission FROM role_group_permissions WHERE role_group = ? ORDER BY permission`, role)
	if err != nil || len(codes) > 0 {
		return codes, err
	}
	return s.codes(ctx, `SELECT permission FROM role_permissions WHERE role = ? ORDER BY permission`, role)
}

func (s *Store) codes(ctx context.Context, query, role string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), role)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: role permissions: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("sqlstore: scan permission: %w", err)
		}
		out = append(out, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: role permissions: %w", err)
	}
	return out, nil
}

// SetRoleGroupPermissions replaces the grants of a role group.
func (s *Store) SetRoleGroupPermissions(ctx context.Context, group string, codes []string) error {
	return s.replaceGrants(ctx, "role_group_permissions", "role_group", group, codes)
}

// SetRolePermissions replaces the per-role grants.
func (s *Store) SetRolePermissions(ctx context.Context, role string, codes []string) error {
	return s.replaceGrants(ctx, "role_permissions", "role", role, codes)
}

func (s *Store) replaceGrants(ctx context.Context, table, column, key string, codes []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM `+table+` WHERE `+column+` = ?`), key); err != nil {
		return fmt.Errorf("sqlstore: clear grants: %w", err)
	}
	insert := s.q(`INSERT INTO ` + table + ` (` + column + `, permission) VALUES (?, ?) ON CONFLICT DO NOTHING`)
	for _, code := range codes {
		if _, err := tx.ExecContext(ctx, insert, key, code); err != nil {
			return fmt.Errorf("sqlstore: insert grant: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: commit grants: %w", err)
	}
	return nil
}

/*
====================================
SETTINGS
====================================
*/

// AuthDisabled implements [pmsGuard.SettingsStore]. A missing settings row
// means auth is enabled.
func (s *Store) AuthDisabled(ctx context.Context) (bool, error) {
	var disabled bool
	err := s.db.QueryRowContext(ctx, s.q(`SELECT auth_disabled FROM hotel_config WHERE id = ?`), settingsRow).Scan(&disabled)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlstore: read auth_disabled: %w", err)
	}
	return disabled, nil
}

// SetAuthDisabled implements [pmsGuard.SettingsStore].
func (s *Store) SetAuthDisabled(ctx context.Context, disabled bool) error {
	_, err := s.db.ExecContext(ctx, s.q(`
INSERT INTO hotel_config (id, auth_disabled, updated_at) VALUES (?, ?, ?)
ON CONFLICT (id) DO UPDATE SET auth_disabled = excluded.auth_disabled, updated_at = excluded.updated_at`),
		settingsRow, disabled, s.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("sqlstore: write auth_disabled: %w", err)
	}
	return nil
}

/*
====================================
GUEST TOKENS
====================================
*/

type projection struct {
	CheckIn *pmsGuard.CheckInView `json:"checkIn,omitempty"`
	Payment *pmsGuard.PaymentView `json:"payment,omitempty"`
}

const guestColumns = `token, resource_type, resource_id, state, expires_at, created_at, projection`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGuestToken(row rowScanner) (pmsGuard.GuestToken, error) {
	var (
		g                    pmsGuard.GuestToken
		typ, state, proj     string
		expiresMs, createdMs int64
	)
	err := row.Scan(&g.Token, &typ, &g.ResourceID, &state, &expiresMs, &createdMs, &proj)
	if errors.Is(err, sql.ErrNoRows) {
		return pmsGuard.GuestToken{}, pmsGuard.ErrNotFound
	}
	if err != nil {
		return pmsGuard.GuestToken{}, fmt.Errorf("sqlstore: scan guest token: %w", err)
	}

	var p projection
	if err := json.Unmarshal([]byte(proj), &p); err != nil {
		return pmsGuard.GuestToken{}, fmt.Errorf("sqlstore: decode guest projection: %w", err)
	}
	g.Type = pmsGuard.GuestResourceType(typ)
	g.State = pmsGuard.GuestTokenState(state)
	g.ExpiresAt = fromMillis(expiresMs)
	g.CreatedAt = fromMillis(createdMs)
	g.CheckIn = p.CheckIn
	g.Payment = p.Payment
	return g, nil
}

// GetGuestToken implements [pmsGuard.GuestTokenStore].
func (s *Store) GetGuestToken(ctx context.Context, token string) (pmsGuard.GuestToken, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+guestColumns+` FROM guest_tokens WHERE token = ?`), token)
	return scanGuestToken(row)
}

// CreateGuestToken implements [pmsGuard.GuestTokenStore]. An existing token
// reports ErrStateConflict.
func (s *Store) CreateGuestToken(ctx context.Context, g pmsGuard.GuestToken) error {
	proj, err := json.Marshal(projection{CheckIn: g.CheckIn, Payment: g.Payment})
	if err != nil {
		return fmt.Errorf("sqlstore: encode guest projection: %w", err)
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = s.now()
	}

	res, err := s.db.ExecContext(ctx, s.q(`
INSERT INTO guest_tokens (`+guestColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (token) DO NOTHING`),
		g.Token, string(g.Type), g.ResourceID, string(g.State),
		toMillis(g.ExpiresAt), toMillis(g.CreatedAt), string(proj),
	)
	if err != nil {
		return fmt.Errorf("sqlstore: create guest token: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return pmsGuard.ErrStateConflict
	}
	return nil
}

// TransitionGuestToken implements [pmsGuard.GuestTokenStore] with a
// conditional UPDATE. Zero affected rows is told apart into ErrNotFound and
// ErrStateConflict by a follow-up read.
func (s *Store) TransitionGuestToken(ctx context.Context, token string, from, to pmsGuard.GuestTokenState) (pmsGuard.GuestToken, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return pmsGuard.GuestToken{}, fmt.Errorf("sqlstore: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		s.q(`UPDATE guest_tokens SET state = ? WHERE token = ? AND state = ?`),
		string(to), token, string(from),
	)
	if err != nil {
		return pmsGuard.GuestToken{}, fmt.Errorf("sqlstore: transition guest token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return pmsGuard.GuestToken{}, fmt.Errorf("sqlstore: transition guest token: %w", err)
	}

	row := tx.QueryRowContext(ctx, s.q(`SELECT `+guestColumns+` FROM guest_tokens WHERE token = ?`), token)
	g, err := scanGuestToken(row)
	if err != nil {
		return pmsGuard.GuestToken{}, err
	}
	if n == 0 {
		return pmsGuard.GuestToken{}, pmsGuard.ErrStateConflict
	}
	if err := tx.Commit(); err != nil {
		return pmsGuard.GuestToken{}, fmt.Errorf("sqlstore: commit transition: %w", err)
	}
	return g, nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: rows affected: %w", err)
	}
	if n == 0 {
		return pmsGuard.ErrNotFound
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
