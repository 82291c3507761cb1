package collab

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"shorts_farm/internal/pipeline"
)

const plannerSystem = `You are a storyboarder for short educational videos. Turn research material into a scene plan.
For every scene choose the visual: either one image URL taken from the research material, or nothing when the scene is only dialogue.
Then plan the dialogue turn by turn: which character speaks and what the line should cover. This is a plan, not a final script.
Answer with a JSON object {"scenes":[{"sceneNumber":1,"contentImageUrl":"...","dialoguePlan":[{"character":"Name","lineDescription":"..."}]}]}.`

const writerSystem = `You write final scripts for short educational videos from a scene plan.
For every planned turn write one natural spoken line in the character's voice, without markdown, asterisks or stage directions.
Pick an expression for each line from the expressions listed for that character.
Keep sceneNumber and contentImageUrl from the plan unchanged.
Answer with a JSON object {"scenes":[{"sceneNumber":1,"contentImageUrl":"...","dialogues":[{"character":"Name","line":"...","expression":"..."}]}]}.`

// LLMPlanner planning bằng LLM
type LLMPlanner struct {
	llm *LLM
}

// NewLLMPlanner tạo planner
func NewLLMPlanner(llm *LLM) *LLMPlanner {
	return &LLMPlanner{llm: llm}
}

// Plan sinh plan khoảng 60 giây gắn với thế giới của cast
func (p *LLMPlanner) Plan(ctx context.Context, req pipeline.PlanRequest) ([]pipeline.PlannedScene, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n\nResearch text:\n%s\n\n", req.Topic, req.RawText)
	if len(req.ImageURLs) > 0 {
		b.WriteString("Images found in the research (markdown, with descriptions):\n")
		for _, img := range req.ImageURLs {
			b.WriteString(img)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	writeCast(&b, req.Cast, req.Dynamics)
	b.WriteString("\nCreate a plan that ties back to the cast and their universe and takes about 60 seconds to perform.")

	var out struct {
		Scenes []pipeline.PlannedScene `json:"scenes"`
	}
	if err := p.llm.JSON(ctx, plannerSystem, b.String(), &out); err != nil {
		return nil, err
	}
	return out.Scenes, nil
}

// LLMWriter viết thoại bằng LLM
type LLMWriter struct {
	llm *LLM
}

// NewLLMWriter tạo writer
func NewLLMWriter(llm *LLM) *LLMWriter {
	return &LLMWriter{llm: llm}
}

// Write viết script hoàn chỉnh từ plan
func (w *LLMWriter) Write(ctx context.Context, req pipeline.WriteRequest) ([]pipeline.WrittenScene, error) {
	plan, err := json.Marshal(req.Plan)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n\n", req.Topic)
	writeCast(&b, req.Cast, req.Dynamics)
	fmt.Fprintf(&b, "\nPlan:\n%s\n\nWrite the final script. It should take about 60 seconds to perform.", plan)

	var out struct {
		Scenes []pipeline.WrittenScene `json:"scenes"`
	}
	if err := w.llm.JSON(ctx, writerSystem, b.String(), &out); err != nil {
		return nil, err
	}
	return out.Scenes, nil
}

func writeCast(b *strings.Builder, cast []pipeline.CharacterBrief, dynamics string) {
	b.WriteString("Characters:\n")
	for _, c := range cast {
		fmt.Fprintf(b, "- %s: %s", c.Name, c.Description)
		if len(c.Expressions) > 0 {
			fmt.Fprintf(b, " (expressions: %s)", strings.Join(c.Expressions, ", "))
		}
		b.WriteByte('\n')
	}
	if dynamics != "" {
		fmt.Fprintf(b, "Cast dynamic: %s\n", dynamics)
	}
}
