// Package service implements the application's use cases on top of the
// domain and store layers: storyboard creation and lifecycle management,
// and bring-your-own-key credential handling. Services contain the
// orchestration logic; they do not know about HTTP.
package service
