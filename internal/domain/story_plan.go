package domain

import "errors"

// Common validation errors for StoryPlan
var (
	ErrEmptyPlanTitle     = errors.New("story plan title cannot be empty")
	ErrEmptyPlanLogline   = errors.New("story plan logline cannot be empty")
	ErrEmptyPlanAnchor    = errors.New("story plan anchor content cannot be empty")
	ErrNoPlannedScenes    = errors.New("story plan must contain at least one scene")
	ErrBadPlannedScene    = errors.New("planned scene is missing required fields")
	ErrBadSceneNumbering  = errors.New("planned scenes must be numbered 1..N without gaps")
)

// PlannedScene is one scene of an LLM-produced story plan.
type PlannedScene struct {
	SceneNumber int    `json:"scene_number"`
	Description string `json:"scene_description"`
	Action      string `json:"scene_action"`
}

// StoryPlan is the validated output of the story-structure generation step:
// the shared story anchor plus a short ordered scene list. The anchor is the
// persistent character/setting/style block every scene prompt reuses, which
// is what keeps the generated frames visually consistent.
type StoryPlan struct {
	Title              string         `json:"title"`
	Logline            string         `json:"logline"`
	StoryAnchorContent string         `json:"story_anchor_content"`
	Scenes             []PlannedScene `json:"scenes"`
}

// Validate checks that the plan carries every field the pipeline needs and
// that scenes are numbered 1..N in order.
func (p *StoryPlan) Validate() error {
	if p.Title == "" {
		return ErrEmptyPlanTitle
	}

	if p.Logline == "" {
		return ErrEmptyPlanLogline
	}

	if p.StoryAnchorContent == "" {
		return ErrEmptyPlanAnchor
	}

	if len(p.Scenes) == 0 {
		return ErrNoPlannedScenes
	}

	for i, scene := range p.Scenes {
		if scene.Description == "" || scene.Action == "" {
			return ErrBadPlannedScene
		}

		if scene.SceneNumber != i+1 {
			return ErrBadSceneNumbering
		}
	}

	return nil
}
