package gemini

import (
	"fmt"
	"strings"
)

// masterDirective is the fixed art direction prepended to every scene image
// prompt. Changing this text changes the look of every generated frame.
const masterDirective = `--MASTER DIRECTIVE--
You are an elite concept artist for the film industry. Your task is to generate a single, full-bleed cinematic sketch that visualizes a single moment from a film.
---ABSOLUTE TECHNICAL REQUIREMENTS---
- FRAMING: The sketch MUST fill the entire 16:9 image canvas completely, from edge to edge. There must be ZERO BORDERS, MARGINS, OR PADDING. The artwork itself IS the entire image.
- STYLE: Purely black and white charcoal sketch. The texture and lines of the charcoal should be part of the artwork, not a background.
- COLOR & TEXT: Strictly NO COLOR. Strictly NO TEXT or annotations of any kind.
---ARTISTIC DIRECTION---
- CINEMATOGRAPHY: Treat this as a single, powerful frame from a masterfully directed film. Emphasize dynamic composition, clear camera angles, and dramatic, high-contrast lighting (chiaroscuro).
- MOOD: Evoke a moody, atmospheric aesthetic based on the Scene Content. Shadows are as important as the subjects.
- CLARITY: Ensure character poses, expressions, and key actions are clear and instantly understandable.
Based on the Scene Details provided by the user, generate the specified cinematic sketch.`

// planSystemPrompt instructs the text model to emit a single JSON object
// describing the story. The structure mirrors domain.StoryPlan.
const planSystemPrompt = `You are an expert AI Director and Cinematographer. Your task is to take a user's high-level concept and transform it into a structured storyboard plan.

Your workflow is:
1.  Define the consistent "story anchor content" (characters, setting, style).
2.  Create a 3-5 scene narrative, writing a unique "scene action" for each scene.

Your final output MUST be a single, valid JSON object following the structure below. Do not include any other text or explanations.

**JSON OUTPUT STRUCTURE:**
{
  "title": "A concise, cinematic title for the story",
  "logline": "A one-sentence summary of the story arc.",
  "story_anchor_content": "A complete text block starting with '--SCENE CONTENT--' that defines the consistent characters, setting, and style reference for the entire story.",
  "scenes": [
    {
      "scene_number": 1,
      "scene_description": "A brief, one-sentence description of the action in this scene.",
      "scene_action": "A complete text block starting with '--SCENE ACTION--' that describes the specific composition, action, and lighting for this single frame."
    }
  ]
}`

// ScenePrompt assembles the full image prompt for one scene: the master
// directive, the storyboard's anchor content, and the scene action, joined
// by blank lines. The processor also records this text on the scene.
func ScenePrompt(storyAnchor, sceneAction string) string {
	return masterDirective + "\n\n" + storyAnchor + "\n\n" + sceneAction
}

// planPrompt appends the user's concept to the planning system prompt.
func planPrompt(userPrompt string) string {
	return fmt.Sprintf("%s\n\nUSER PROMPT: %s", planSystemPrompt, userPrompt)
}

// extractJSON returns the first top-level JSON object embedded in text.
// Models sometimes wrap the object in markdown fences or prose, so the
// parse is anchored on the outermost braces.
func extractJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return text[start : end+1], true
}
