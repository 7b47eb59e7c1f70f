// Package types defines the JSON request and response bodies of the HTTP API.
//
// Every error is written as an ErrorResponse:
//
//	{"error": "Too many authentication attempts", "code": "AUTH_RATE_LIMIT_EXCEEDED"}
//
// Quota denials add the balance the caller needs to decide what to do next:
//
//	{
//	  "error": "15 tokens required, 5 remaining",
//	  "code": "QUOTA_EXCEEDED",
//	  "quotaExceeded": true,
//	  "actionType": "storybook",
//	  "cost": 15,
//	  "tokensUsed": 45,
//	  "tokenLimit": 50,
//	  "remaining": 5,
//	  "tier": "free"
//	}
//
// ErrorResponse.HTTPStatusCode maps each code to its HTTP status.
package types
