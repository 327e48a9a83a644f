// Package llm provides language model interfaces for expense classification.
// It supports multiple LLM providers including OpenAI and Anthropic, with
// rate limiting and response caching; retry policy belongs to the caller.
package llm
