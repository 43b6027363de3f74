// Package tasks runs bulk media uploads with per-item state tracking and live progress reporting.
//
// # Item lifecycle
//
// Every selected file becomes an [UploadItem] that moves through
//
//	Pending -> Uploading -> Succeeded | Failed
//
// Terminal states are final; a failed file is retried by selecting it again, which creates a new item in a new
// batch. While Uploading, progress never regresses and is held at 99% until the transport confirms success.
// A succeeded item carries the server's result reference and no error; a failed item carries an error message
// and no reference.
//
// # Orchestration
//
// [Uploader.Run] validates its preconditions (a non-empty selection and a usable credential from the configured
// [golang.org/x/oauth2.TokenSource]) and then drives the items through a [Transport]:
//
//  1. Items are processed in input order by a worker pool pulling from a shared queue. The default pool size is
//     one, which uploads strictly sequentially and keeps a single request body in flight.
//  2. An optional [golang.org/x/time/rate] limiter paces item starts.
//  3. Transport errors, non-success responses, timeouts and even transport panics fail only the item concerned.
//  4. After the last item resolves, a [BatchSummary] is emitted and the [RefreshFunc] is called once if anything
//     succeeded.
//
// Cancelling the context fails every unfinished item with "upload canceled"; already resolved items are not
// touched.
//
// # Progress Reporting
//
// Adapters observe a batch through [UploadOpts.OnEvent], which receives an ordered stream of [ProgressUpdate]
// values ([ItemStateChanged], [ItemProgress], [BatchCompleted]). Events and [Notifier] calls are serialized, so
// callbacks never run concurrently even when several workers are active. Callbacks run on the upload path and
// should hand off quickly; panics in them are recovered and logged.
//
// # Failure messages
//
// [FailureMessage] prefers the message the server supplied, then explains well-known conditions (payload too
// large, expired session, timeout, network failure), and otherwise uses the error text.
package tasks
