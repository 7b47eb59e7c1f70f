/*
Package auth authenticates callers of the metered AI routes.

Each configured API key belongs to one user. The middleware resolves the
key to that user and stores the identity with logging.WithUser, which is
where the quota middleware reads the account it charges:

	validator := auth.NewAPIKeyValidator([]*auth.APIKeyInfo{
		{Key: "bk-live-7f3a", UserID: "user-123", Enabled: true},
	})
	mw := auth.NewAPIKeyMiddleware(validator, auth.Options{})

	mux.Handle("POST /v1/chat", mw.Handle(chatHandler))

# Trusted identity header

Deployments behind a gateway that already authenticates users can set
Options.TrustedUserHeader. Requests without an API key then use the
X-User-ID header as their identity. The option is off by default because
any client can set that header.
*/
package auth
