// Package store defines the persistence interfaces consumed by the service
// and task layers, the sentinel errors they surface, and the transaction
// helper used to compose multiple store operations atomically. Concrete
// implementations live in internal/platform/postgres.
package store
