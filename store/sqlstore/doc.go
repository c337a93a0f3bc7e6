// Package sqlstore is a [pmsGuard.Store] on database/sql, for PostgreSQL
// through the pgx stdlib driver or SQLite through go-sqlite3. The schema is
// embedded and applied with goose.
//
// Guest token transitions are a conditional UPDATE checked by RowsAffected,
// so the state re-check and the write are one statement.
package sqlstore
