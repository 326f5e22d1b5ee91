// Package postgres implements the internal/store interfaces on PostgreSQL
// through database/sql and the pgx stdlib driver. Every mutating store
// method writes with an optimistic version check; the GetForUpdate methods
// take row locks for use inside a Transactor transaction. The schema is
// embedded and applied with goose.
package postgres
