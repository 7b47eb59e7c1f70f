// Package openai implements the OpenAI Chat Completions adapter.
//
// The adapter sends one POST to {base_url}/chat/completions per call and
// maps non-2xx statuses to the typed errors in the providers package. It
// also serves any OpenAI-compatible endpoint (see package generic).
package openai
