// Package generation provides interfaces for interacting with external
// AI/LLM services for content generation. It abstracts the details of LLM
// API integration (Gemini), allowing the application to plan stories and
// render scene images without coupling to a specific external service.
package generation
