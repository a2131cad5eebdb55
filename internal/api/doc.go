// Package api contains the HTTP handlers for the storyboard service:
// storyboard submission and retrieval, scene image serving, queue
// statistics, and bring-your-own-key management. Handlers translate
// between HTTP and the service layer; they hold no business logic.
package api
