// Package handlers provides the HTTP endpoint handlers of the service.
//
// AI endpoints call providers through a Completer (the failover
// orchestrator). Admission has already happened in middleware by the time a
// handler runs, so handlers only decode, call and respond:
//
//	POST /v1/chat               ChatHandler      (ai class, chatbot quota)
//	POST /v1/generate/{action}  GenerateHandler  (ai class, action quota)
//	POST /auth/login            LoginHandler     (auth class)
//	/admin/...                  AdminHandler     (bearer token)
//
// Successful AI responses include the caller's quota balance after the
// charge:
//
//	{
//	  "id": "openai-resp",
//	  "content": "...",
//	  "provider": "anthropic",
//	  "fallback": true,
//	  "usage": {"prompt_tokens": 12, "completion_tokens": 40, "total_tokens": 52},
//	  "quota": {"tier": "free", "tokensUsed": 47, "tokenLimit": 50, "remaining": 3, "periodResetAt": "2026-04-01T00:00:00Z"}
//	}
package handlers
