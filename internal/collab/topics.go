package collab

import (
	"context"
	"fmt"
	"strings"

	"shorts_farm/internal/pipeline"
	"shorts_farm/internal/scheduler"
)

const (
	ideationSystem  = "You are the creative director of a short-video social media account. Brainstorm fresh video topics that will perform well with its audience."
	selectionSystem = "You are a critical content strategist. Compare video topic ideas and pick the one with the highest potential for engagement."
)

// LLMTopicGenerator sinh topic cho automation account
type LLMTopicGenerator struct {
	llm *LLM
}

// NewLLMTopicGenerator tạo generator
func NewLLMTopicGenerator(llm *LLM) *LLMTopicGenerator {
	return &LLMTopicGenerator{llm: llm}
}

func accountContext(brief scheduler.TopicBrief) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The account is called %q.\n", brief.DisplayName)
	bio := brief.Bio
	if bio == "" {
		bio = "Not provided."
	}
	fmt.Fprintf(&b, "Its bio is: %q\n", bio)
	if brief.CreativeBrief != "" {
		fmt.Fprintf(&b, "Creative brief for the next videos: %q\n", brief.CreativeBrief)
	}
	return b.String()
}

// Ideate sinh brief.Count ý tưởng, tránh lặp các topic gần đây
func (g *LLMTopicGenerator) Ideate(ctx context.Context, brief scheduler.TopicBrief) ([]string, error) {
	var b strings.Builder
	b.WriteString(accountContext(brief))
	if len(brief.RecentTopics) > 0 {
		fmt.Fprintf(&b, "\nTopics of the last %d videos:\n%s\n", len(brief.RecentTopics), strings.Join(brief.RecentTopics, "\n"))
	}
	fmt.Fprintf(&b, "\nGenerate %d new topic ideas that complement this history. Answer with a JSON object {\"topics\":[\"...\"]}.", brief.Count)

	var out struct {
		Topics []string `json:"topics"`
	}
	if err := g.llm.JSON(ctx, ideationSystem, b.String(), &out); err != nil {
		return nil, err
	}
	topics := make([]string, 0, len(out.Topics))
	for _, t := range out.Topics {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	return topics, nil
}

// SelectBest chọn ý tưởng tốt nhất trong danh sách
func (g *LLMTopicGenerator) SelectBest(ctx context.Context, brief scheduler.TopicBrief, ideas []string) (string, error) {
	var b strings.Builder
	b.WriteString(accountContext(brief))
	b.WriteString("\nChoose the best topic from this list:\n")
	for i, idea := range ideas {
		fmt.Fprintf(&b, "%d. %s\n", i+1, idea)
	}
	b.WriteString("\nCritique each option briefly, then answer with a JSON object {\"bestTopic\":\"...\",\"reasoning\":\"...\"}.")

	var out struct {
		BestTopic string `json:"bestTopic"`
		Reasoning string `json:"reasoning"`
	}
	if err := g.llm.JSON(ctx, selectionSystem, b.String(), &out); err != nil {
		return "", err
	}
	return out.BestTopic, nil
}

// LLMSocialCopywriter sinh prompt thumbnail và caption đăng bài
type LLMSocialCopywriter struct {
	llm *LLM
}

// NewLLMSocialCopywriter tạo copywriter
func NewLLMSocialCopywriter(llm *LLM) *LLMSocialCopywriter {
	return &LLMSocialCopywriter{llm: llm}
}

func characterNames(req pipeline.SocialRequest) string {
	names := make([]string, 0, len(req.Characters))
	for _, c := range req.Characters {
		names = append(names, c.Name)
	}
	return strings.Join(names, ", ")
}

// ThumbnailPrompt prompt ảnh thumbnail 9:16 có tiêu đề video
func (s *LLMSocialCopywriter) ThumbnailPrompt(ctx context.Context, req pipeline.SocialRequest) (string, error) {
	prompt := fmt.Sprintf(`Write an image generation prompt for a vibrant, eye-catching vertical thumbnail for a short video.
Video topic: %q
Characters in the video: %s
Requirements: 9:16 aspect ratio, the title %q shown prominently in a bold modern font, colorful style designed to stand out in a social feed.
Answer with the prompt only.`, req.Topic, characterNames(req), req.Topic)
	return s.llm.Text(ctx, "", prompt)
}

// SocialCopy 2-4 câu theo giọng một nhân vật, có emoji và hashtag
func (s *LLMSocialCopywriter) SocialCopy(ctx context.Context, req pipeline.SocialRequest) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Write the caption for a short video post about %q.\n", req.Topic)
	if req.AccountName != "" {
		fmt.Fprintf(&b, "The account is called %q and focuses on %q.\n", req.AccountName, req.AccountBio)
	}
	fmt.Fprintf(&b, "Write in the voice of the main character only. Characters in the video: %s.\n", characterNames(req))
	b.WriteString("The caption must be 2-4 sentences, include emojis and hashtags, and be ready to post. Answer with the caption only.")
	return s.llm.Text(ctx, "", b.String())
}
