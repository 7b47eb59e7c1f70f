// Package logging configures log/slog for the service.
//
// New returns a *slog.Logger in JSON, text or console format. Records
// logged with the *Context methods carry the request ID, user, client IP
// and provider stored in the context by the HTTP middleware:
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json"})
//	slog.SetDefault(logger)
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	slog.InfoContext(ctx, "request admitted") // includes request_id
//
// With RedactPII enabled, values under credential-like keys (api_key,
// token, password) are masked and string values are scanned for keys,
// bearer tokens and email addresses.
package logging
