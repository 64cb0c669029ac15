// Package llm provides language model collaborators for receipt processing:
// structured item extraction, product lookup, image transcription, and spending
// narratives. It supports OpenAI, Anthropic, and Gemini, with prioritized
// endpoint fallback, retry logic, and rate limiting.
package llm
