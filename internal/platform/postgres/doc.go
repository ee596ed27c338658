// Package postgres provides PostgreSQL implementations of the store
// interfaces. All implementations accept a store.DBTX so the same code
// runs against a connection pool or an open transaction, and map driver
// errors to store sentinel errors via MapError.
package postgres
