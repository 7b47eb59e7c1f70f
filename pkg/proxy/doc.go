// Package proxy holds the HTTP boundary helpers shared by the middleware and
// handlers packages: client identity extraction, JSON request decoding,
// response writing and error normalization.
//
// # Client identity
//
// ClientIP resolves the rate limit identity from trusted proxy headers in
// this order: CF-Connecting-IP, X-Real-IP, the first X-Forwarded-For entry.
// Requests without any of them share the "unknown" identity.
//
// # Errors
//
// Classify normalizes any error to one of five kinds (transient, rate
// limited, circuit open, admission denied, not found). HandleError turns an
// error into the {error, code} body written by WriteErrorResponse:
//
//	result, err := orchestrator.Complete(ctx, req)
//	if err != nil {
//	    proxy.WriteErrorResponse(w, proxy.HandleError(err))
//	    return
//	}
//
// Only routing.ErrAllProvidersFailed surfaces as a hard 502 failure.
package proxy
