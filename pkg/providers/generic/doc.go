// Package generic adapts any OpenAI-compatible endpoint (Ollama, vLLM,
// LM Studio) by reusing the openai adapter with a custom base URL and an
// optional API key.
package generic
