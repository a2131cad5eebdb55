// Package gemini implements the generation.Generator interface using
// Google's Gemini API. It owns the prompt assembly for both generation
// phases: the story-structure call that produces a JSON plan, and the
// per-scene image call that combines the master art directive, the
// storyboard's anchor content, and the scene action into one prompt.
package gemini
