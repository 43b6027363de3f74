// Package services talks to the admin backend and to object storage.
//
// # API Service
//
// [APIService] joins paths onto the configured base URL and attaches a bearer token from an [oauth2.TokenSource].
// [TokenSource] builds that source from config: a static token, or client credentials exchanged at a token URL
// and refreshed automatically.
//
// Responses are read whole. Non-2xx statuses become [shared.APIError] carrying the server's "message" field, and
// list endpoints that wrap their payload as {"data": [...]} are unwrapped transparently.
//
// # Upload Transports
//
// Both transports implement tasks.Transport and make a single attempt per file:
//   - [HTTPTransport] : multipart POST to /music/upload, streaming the file through a pipe so progress tracks
//     the bytes actually sent. The response's fileUrl is the item's result reference.
//   - [ObjectStoreTransport] : PutObject into an S3-compatible bucket via minio-go, keyed by kind and batch.
//     The public object URL is the result reference.
//
// # Admin Clients
//
//   - [DocumentsClient] : terms and disclaimer versions (list, create, update, publish, unpublish, delete)
//   - [PlansClient] : subscription plans (list, save, activate, deactivate, set default)
//   - [UsersClient] : user accounts (list, delete)
//   - [MusicClient] : categories, and single tracks posted with their audio file and thumbnail as one streamed form
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrAPIRequest] : the server answered with a non-2xx status ([shared.APIError])
//   - [shared.ErrTimeout] : the request or connection timed out
//   - [shared.ErrServiceUnavailable] : the server could not be reached
//   - [shared.ErrMissingCredentials] : no token could be obtained
//   - [shared.ErrDocumentNotFound], [shared.ErrPlanNotFound] : unknown IDs
//   - [shared.ErrActiveDocument] : an edit targeted the active document version
package services
