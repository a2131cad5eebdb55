// Package store defines the persistence interfaces the services and the
// processor depend on, plus the error taxonomy shared by all
// implementations. Concrete stores live in internal/platform/postgres.
package store
