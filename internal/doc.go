// Package internal documents the site backend internals.
//
// The internal tree is organized by responsibility:
// - api: HTTP handlers, middleware, and routing
// - domain: admin users, projects, events, attachments, contact form
// - storage: Postgres repositories and migrations
// - blob: S3-compatible object storage for record images
// - email: contact notifications
// - jobs: River workers (orphan sweep, alerts)
// - auth, audit, config, metrics, telemetry: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
