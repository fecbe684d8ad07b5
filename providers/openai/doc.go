// Package openai is a minimal client for OpenAI-compatible chat completion
// endpoints (OpenAI, OpenRouter, Ollama, vLLM and the like). It sends one
// user message per call and returns the reply text, either whole or as a
// sequence of streamed deltas.
package openai
