package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"shorts_farm/internal/api/studio/models"
)

func TestCanAdvance_Table(t *testing.T) {
	cases := []struct {
		from, to models.ProjectStatus
		ok       bool
	}{
		{models.ProjectStatusGathering, models.ProjectStatusPlanning, true},
		{models.ProjectStatusPlanning, models.ProjectStatusWriting, true},
		{models.ProjectStatusWriting, models.ProjectStatusGeneratingVoices, true},
		{models.ProjectStatusGeneratingVoices, models.ProjectStatusRendering, true},
		{models.ProjectStatusRendering, models.ProjectStatusDone, true},
		{models.ProjectStatusGathering, models.ProjectStatusWriting, false},
		{models.ProjectStatusWriting, models.ProjectStatusPlanning, false},
		{models.ProjectStatusDone, models.ProjectStatusGathering, false},
		{models.ProjectStatusError, models.ProjectStatusGathering, false},
		{models.ProjectStatusRendering, models.ProjectStatusError, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, CanAdvance(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestCanFail_And_Terminal(t *testing.T) {
	for _, s := range stageOrder {
		assert.True(t, CanFail(s), "%s phải chuyển được sang error", s)
	}
	assert.False(t, CanFail(models.ProjectStatusError))
	assert.False(t, CanFail("bogus"))

	assert.True(t, IsTerminal(models.ProjectStatusDone))
	assert.True(t, IsTerminal(models.ProjectStatusError))
	assert.False(t, IsTerminal(models.ProjectStatusRendering))

	assert.True(t, CanRerunInto(models.ProjectStatusGathering))
	assert.False(t, CanRerunInto(models.ProjectStatusDone))
	assert.False(t, CanRerunInto(models.ProjectStatusError))
}

func TestResumeStatus(t *testing.T) {
	scriptID := primitive.NewObjectID()
	videoID := primitive.NewObjectID()
	dur := 1.5
	plan := []models.PlanScene{{SceneNumber: 1}}
	unvoiced := &models.Script{Scenes: []models.Scene{{SceneNumber: 1, Dialogues: []models.DialogueTurn{{Line: "hi"}}}}}
	voiced := &models.Script{
		Scenes:   []models.Scene{{SceneNumber: 1, Dialogues: []models.DialogueTurn{{Line: "hi", VoiceURL: "u", AudioDurationSeconds: &dur}}}},
		Captions: []models.Caption{{Text: "hi"}},
	}
	voicedNoCaptions := &models.Script{Scenes: voiced.Scenes}

	cases := []struct {
		name    string
		project models.Project
		script  *models.Script
		want    models.ProjectStatus
	}{
		{"chưa có gì", models.Project{}, nil, models.ProjectStatusGathering},
		{"có plan", models.Project{Plan: plan}, nil, models.ProjectStatusWriting},
		{"script chưa voice", models.Project{Plan: plan, ScriptID: &scriptID}, unvoiced, models.ProjectStatusGeneratingVoices},
		{"script voice nhưng thiếu caption", models.Project{Plan: plan, ScriptID: &scriptID}, voicedNoCaptions, models.ProjectStatusGeneratingVoices},
		{"scriptId trỏ tới script đã mất", models.Project{Plan: plan, ScriptID: &scriptID}, nil, models.ProjectStatusGeneratingVoices},
		{"script đã voice", models.Project{Plan: plan, ScriptID: &scriptID}, voiced, models.ProjectStatusRendering},
		{"đã có video", models.Project{Plan: plan, ScriptID: &scriptID, VideoID: &videoID}, voiced, models.ProjectStatusDone},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := c.project
			assert.Equal(t, c.want, ResumeStatus(&p, c.script))
		})
	}
}
