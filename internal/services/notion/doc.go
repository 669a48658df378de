// Package notion publishes documents as Notion pages using notionapi.
//
// Every page is created in a single request carrying the title and the first
// 100 child blocks; remaining blocks are appended in batches. Requests share
// a token-bucket limiter (Notion allows about three requests per second).
// 429 and 409 answers are retried, honouring Retry-After; server errors are
// retried only for reads and archiving, never for page creation or appends.
package notion
