// Package server serves read-only HTML previews of admin content plus operational endpoints.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns, so a wrong method is answered with 405.
//
// # Preview Pages
//
// [PreviewHandler] renders embedded html/template pages for terms, disclaimers, plans and the upload journal:
//
//	GET  /                 → overview
//	GET  /terms            → terms listing with plain-text excerpts
//	GET  /terms/{id}       → one document, content rendered through the allow-list
//	GET  /disclaimer[/{id}] → same for disclaimers
//	GET  /plans            → plan cards with sanitized descriptions and features
//	GET  /uploads[/{id}]   → journaled batches and their items
//	GET|POST /sanitize     → paste markup or a URL and see what the gate keeps
//
// Operator-authored markup reaches a template only as [sanitize.Trusted] output; every other value is escaped by
// html/template. Every response also carries a strict Content-Security-Policy (no scripts, frames or remote
// resources) from [SecureHeaders].
//
// # Operational Endpoints
//
// [NewPreviewRouter] also mounts the Prometheus registry at /metrics and a liveness probe at /healthz.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
