// Package models defines the entities the admin tooling works with.
//
// The package contains two categories of types:
//
// 1. Admin API resources: JSON documents owned by the platform backend
//   - [LegalDocument] : Versioned terms and disclaimer documents with HTML content
//   - [SubscriptionPlan] : Plans with pricing, feature flags and an HTML description
//   - [User] : Accounts with subscription status, listed and deleted by operators
//   - [Category] : Catalog categories with their types
//   - [Track] : A single track created with its audio file and thumbnail
//
// 2. Local journal entities: SQLite-backed records of upload batches
//   - [BatchRecord] : One upload batch with its summary counters
//   - [ItemRecord] : One file of a batch with its terminal state
//
// Rich-text fields on API resources are untrusted. Accessors such as [LegalDocument.SafeContent] and
// [SubscriptionPlan.SafeDescription] route them through the sanitize package; renderers use those accessors
// instead of the raw fields.
//
// [BatchRecord] implements the [Model] interface, and the [Repository] interface defines standard CRUD
// operations for database access.
package models
