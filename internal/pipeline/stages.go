package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	"shorts_farm/internal/api/studio/models"
	"shorts_farm/internal/common"
	"shorts_farm/internal/logger"
	"shorts_farm/internal/timeline"
)

// castBundle cast của project cùng nhân vật và asset biểu cảm, nạp một lần mỗi run
type castBundle struct {
	cast       *models.Cast
	characters []models.Character
	byName     map[string]models.Character
	byID       map[primitive.ObjectID]models.Character
	assets     map[primitive.ObjectID][]models.Asset
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (o *Orchestrator) castFor(ctx context.Context, rs *runState) (*castBundle, error) {
	if rs.cast != nil {
		return rs.cast, nil
	}
	cast, err := o.deps.Casts.GetCast(ctx, rs.project.CastID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ArtifactError("Cast not found.")
		}
		return nil, err
	}
	characters, err := o.deps.Casts.ListCharacters(ctx, cast.ID)
	if err != nil {
		return nil, err
	}
	if len(characters) == 0 {
		return nil, common.ValidationError("Characters not found for cast.")
	}

	ids := make([]primitive.ObjectID, 0, len(characters))
	b := &castBundle{
		cast:       cast,
		characters: characters,
		byName:     make(map[string]models.Character, len(characters)),
		byID:       make(map[primitive.ObjectID]models.Character, len(characters)),
		assets:     make(map[primitive.ObjectID][]models.Asset),
	}
	for _, c := range characters {
		b.byName[nameKey(c.Name)] = c
		b.byID[c.ID] = c
		ids = append(ids, c.ID)
	}
	assets, err := o.deps.Casts.ListCharacterAssets(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, a := range assets {
		if a.CharacterID == nil {
			continue
		}
		b.assets[*a.CharacterID] = append(b.assets[*a.CharacterID], a)
	}
	rs.cast = b
	return b, nil
}

func (b *castBundle) briefs() []CharacterBrief {
	out := make([]CharacterBrief, 0, len(b.characters))
	for _, c := range b.characters {
		brief := CharacterBrief{Name: c.Name, Description: c.Description}
		for _, a := range b.assets[c.ID] {
			brief.Expressions = append(brief.Expressions, a.Name)
		}
		out = append(out, brief)
	}
	return out
}

func (b *castBundle) resolve(name string) (models.Character, error) {
	c, ok := b.byName[nameKey(name)]
	if !ok {
		return models.Character{}, common.ValidationError(fmt.Sprintf("Character %s not found in cast.", name))
	}
	return c, nil
}

// assetURL ảnh của nhân vật theo biểu cảm; không khớp thì lấy "default" rồi tới asset đầu tiên
func (b *castBundle) assetURL(characterID primitive.ObjectID, expression string) string {
	assets := b.assets[characterID]
	if len(assets) == 0 {
		return ""
	}
	for _, a := range assets {
		if nameKey(a.Name) == nameKey(expression) {
			return a.URL
		}
	}
	for _, a := range assets {
		if nameKey(a.Name) == "default" {
			return a.URL
		}
	}
	return assets[0].URL
}

// ====================================
// STAGE 1+2: RESEARCH + PLANNING
// ====================================

func (o *Orchestrator) stagePlan(ctx context.Context, rs *runState) error {
	p := rs.project
	if p.HasPlan() || p.ScriptID != nil {
		return nil
	}
	if strings.TrimSpace(p.Topic) == "" && len(p.URLs) == 0 {
		return common.ErrMissingSeed
	}
	if o.deps.Research == nil || o.deps.Planner == nil {
		return common.CollaboratorError("No research capability configured", nil)
	}

	var research *ResearchResult
	err := o.step(ctx, func(ctx context.Context) error {
		var err error
		research, err = o.deps.Research.Research(ctx, ResearchRequest{Topic: p.Topic, URLs: p.URLs, DoMoreResearch: p.DoMoreResearch})
		return err
	})
	if err != nil {
		return collaboratorFailure("Research", err)
	}
	if research == nil || strings.TrimSpace(research.RawText) == "" {
		return common.CollaboratorError("Research returned no content", nil)
	}

	if err := o.advance(ctx, p, models.ProjectStatusGathering); err != nil {
		return err
	}

	bundle, err := o.castFor(ctx, rs)
	if err != nil {
		return err
	}

	var planned []PlannedScene
	err = o.step(ctx, func(ctx context.Context) error {
		var err error
		planned, err = o.deps.Planner.Plan(ctx, PlanRequest{
			Topic:     p.Topic,
			RawText:   research.RawText,
			ImageURLs: research.ImageURLs,
			Cast:      bundle.briefs(),
			Dynamics:  bundle.cast.Dynamics,
		})
		return err
	})
	if err != nil {
		return collaboratorFailure("Planning", err)
	}
	if len(planned) == 0 {
		return common.CollaboratorError("Planner returned an empty plan", nil)
	}

	plan, err := resolvePlan(planned, bundle)
	if err != nil {
		return err
	}
	if err := expectAdvance(p, models.ProjectStatusWriting); err != nil {
		return err
	}
	if err := o.deps.Projects.AttachPlan(ctx, p.ID, plan); err != nil {
		return err
	}
	p.Plan = plan
	p.Status = models.ProjectStatusWriting

	logger.GetAppLogger().WithFields(map[string]interface{}{
		"projectId": p.ID.Hex(),
		"scenes":    len(plan),
	}).Info("🎬 [PIPELINE] Đã lưu plan")
	return nil
}

// resolvePlan đổi tên nhân vật sang id và đánh số lại scene 1..n theo thứ tự sceneNumber
func resolvePlan(planned []PlannedScene, b *castBundle) ([]models.PlanScene, error) {
	sorted := make([]PlannedScene, len(planned))
	copy(sorted, planned)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].SceneNumber < sorted[j].SceneNumber })

	plan := make([]models.PlanScene, 0, len(sorted))
	for i, sc := range sorted {
		out := models.PlanScene{
			SceneNumber:     i + 1,
			ContentImageURL: sc.ContentImageURL,
			DialoguePlan:    make([]models.PlanDialogue, 0, len(sc.DialoguePlan)),
		}
		for _, line := range sc.DialoguePlan {
			c, err := b.resolve(line.Character)
			if err != nil {
				return nil, err
			}
			out.DialoguePlan = append(out.DialoguePlan, models.PlanDialogue{CharacterID: c.ID, LineDescription: line.LineDescription})
		}
		plan = append(plan, out)
	}
	return plan, nil
}

// ====================================
// STAGE 3: WRITING
// ====================================

func (o *Orchestrator) stageWrite(ctx context.Context, rs *runState) error {
	p := rs.project
	if p.ScriptID != nil {
		return nil
	}
	if !p.HasPlan() {
		return common.ArtifactError("Plan not found")
	}

	// Script mồ côi (đã tạo nhưng chưa gắn vào project) thì dùng lại
	script, err := o.deps.Scripts.FindScriptByProject(ctx, p.ID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return err
	}

	if script == nil {
		if o.deps.Writer == nil {
			return common.CollaboratorError("No writer configured", nil)
		}
		bundle, err := o.castFor(ctx, rs)
		if err != nil {
			return err
		}

		var written []WrittenScene
		err = o.step(ctx, func(ctx context.Context) error {
			var err error
			written, err = o.deps.Writer.Write(ctx, WriteRequest{
				Topic:    p.Topic,
				Plan:     planForWriter(p.Plan, bundle),
				Cast:     bundle.briefs(),
				Dynamics: bundle.cast.Dynamics,
			})
			return err
		})
		if err != nil {
			return collaboratorFailure("Writing", err)
		}
		if len(written) == 0 {
			return common.CollaboratorError("Writer returned an empty script", nil)
		}

		scenes, err := buildScenes(written, bundle)
		if err != nil {
			return err
		}
		script, err = o.deps.Scripts.CreateScript(ctx, &models.Script{ProjectID: p.ID, Scenes: scenes})
		if err != nil {
			return err
		}
	}

	if err := expectAdvance(p, models.ProjectStatusGeneratingVoices); err != nil {
		return err
	}
	if err := o.deps.Projects.AttachScript(ctx, p.ID, script.ID); err != nil {
		return err
	}
	id := script.ID
	p.ScriptID = &id
	p.Status = models.ProjectStatusGeneratingVoices
	rs.script = script

	logger.GetAppLogger().WithFields(map[string]interface{}{
		"projectId": p.ID.Hex(),
		"scriptId":  script.ID.Hex(),
		"turns":     script.TurnCount(),
	}).Info("🎬 [PIPELINE] Đã lưu script")
	return nil
}

func planForWriter(plan []models.PlanScene, b *castBundle) []PlannedScene {
	out := make([]PlannedScene, 0, len(plan))
	for _, sc := range plan {
		ps := PlannedScene{SceneNumber: sc.SceneNumber, ContentImageURL: sc.ContentImageURL}
		for _, d := range sc.DialoguePlan {
			ps.DialoguePlan = append(ps.DialoguePlan, PlannedLine{Character: b.byID[d.CharacterID].Name, LineDescription: d.LineDescription})
		}
		out = append(out, ps)
	}
	return out
}

// buildScenes kiểm tra tên nhân vật, chọn asset theo biểu cảm và đánh số scene liên tục
func buildScenes(written []WrittenScene, b *castBundle) ([]models.Scene, error) {
	sorted := make([]WrittenScene, len(written))
	copy(sorted, written)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].SceneNumber < sorted[j].SceneNumber })

	scenes := make([]models.Scene, 0, len(sorted))
	for i, sc := range sorted {
		out := models.Scene{
			SceneNumber:     i + 1,
			ContentImageURL: sc.ContentImageURL,
			Dialogues:       make([]models.DialogueTurn, 0, len(sc.Dialogues)),
		}
		for _, d := range sc.Dialogues {
			c, err := b.byNameOrErr(d.Character)
			if err != nil {
				return nil, err
			}
			assetURL := d.AssetURL
			if assetURL == "" {
				assetURL = b.assetURL(c.ID, d.Expression)
			}
			out.Dialogues = append(out.Dialogues, models.DialogueTurn{
				CharacterID: c.ID,
				Line:        strings.TrimSpace(d.Line),
				Expression:  d.Expression,
				AssetURL:    assetURL,
			})
		}
		scenes = append(scenes, out)
	}
	return scenes, nil
}

func (b *castBundle) byNameOrErr(name string) (models.Character, error) {
	c, ok := b.byName[nameKey(name)]
	if !ok {
		return models.Character{}, common.ValidationError(fmt.Sprintf("Could not find character: %s", name))
	}
	return c, nil
}

// ====================================
// STAGE 4: VOICE
// ====================================

func (o *Orchestrator) requireScript(ctx context.Context, rs *runState) (*models.Script, error) {
	if rs.script != nil {
		return rs.script, nil
	}
	script, err := o.loadScript(ctx, rs.project)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ArtifactError("Script not found")
		}
		return nil, err
	}
	if script == nil {
		return nil, common.ArtifactError("Script not found")
	}
	rs.script = script
	return script, nil
}

func (o *Orchestrator) stageVoice(ctx context.Context, rs *runState) error {
	p := rs.project
	if p.VideoID != nil {
		return nil
	}
	script, err := o.requireScript(ctx, rs)
	if err != nil {
		return err
	}

	if !script.FullyVoiced() {
		if err := o.synthesizeTurns(ctx, rs, script); err != nil {
			return err
		}
		captions := AlignCaptions(script, o.fps)
		if err := o.deps.Scripts.AttachCaptions(ctx, script.ID, captions); err != nil {
			return err
		}
		script.Captions = captions
	}

	return o.advance(ctx, p, models.ProjectStatusGeneratingVoices)
}

// synthesizeTurns tổng hợp giọng cho các lượt chưa có audio, song song trong giới hạn của limiter
func (o *Orchestrator) synthesizeTurns(ctx context.Context, rs *runState, script *models.Script) error {
	if o.deps.Voice == nil || o.deps.Transcriber == nil || o.deps.Blobs == nil {
		return common.CollaboratorError("No voice capability configured", nil)
	}
	bundle, err := o.castFor(ctx, rs)
	if err != nil {
		return err
	}
	log := logger.GetAppLogger()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.deps.Limiter.Size())

	for si := range script.Scenes {
		for ti := range script.Scenes[si].Dialogues {
			turn := &script.Scenes[si].Dialogues[ti]
			if turn.IsVoiced() {
				continue
			}
			character, ok := bundle.byID[turn.CharacterID]
			if !ok || character.VoiceID == "" {
				log.WithFields(map[string]interface{}{
					"projectId":   rs.project.ID.Hex(),
					"characterId": turn.CharacterID.Hex(),
				}).Warn("🎙️ [VOICE] Nhân vật chưa có voiceId, bỏ qua lượt thoại")
				continue
			}
			sceneIdx, turnIdx, voiceID := si, ti, character.VoiceID
			g.Go(func() error {
				return o.step(gctx, func(ctx context.Context) error {
					audio, err := o.deps.Voice.Synthesize(ctx, turn.Line, voiceID)
					if err != nil {
						return collaboratorFailure("Voice synthesis", err)
					}
					tr, err := o.deps.Transcriber.Transcribe(ctx, audio)
					if err != nil {
						return collaboratorFailure("Transcription", err)
					}
					url, err := o.deps.Blobs.Put(ctx, fmt.Sprintf("voice-%s.mp3", uuid.NewString()), "audio/mpeg", audio)
					if err != nil {
						return collaboratorFailure("Audio upload", err)
					}
					ta := models.TurnAudio{VoiceURL: url, DurationSeconds: tr.DurationSeconds, WordCaptions: tr.Captions}
					if err := o.deps.Scripts.AttachTurnAudio(ctx, script.ID, sceneIdx, turnIdx, ta); err != nil {
						return err
					}
					duration := tr.DurationSeconds
					turn.VoiceURL = url
					turn.AudioDurationSeconds = &duration
					turn.WordCaptions = tr.Captions
					return nil
				})
			})
		}
	}
	return g.Wait()
}

// AlignCaptions ghép caption của từng lượt thoại thành một danh sách phẳng, dịch theo frame bắt đầu
// của lượt đó trên timeline để phụ đề khớp với vị trí phát thực tế.
func AlignCaptions(script *models.Script, fps int) []models.Caption {
	tl := timeline.Compile(script, fps)
	captions := []models.Caption{}
	for _, t := range tl.Turns() {
		d := script.Scenes[t.SceneIndex].Dialogues[t.TurnIndex]
		offset := timeline.FrameToMs(t.StartFrame, tl.FPS)
		for _, c := range d.WordCaptions {
			shifted := c
			shifted.StartMs = c.StartMs + offset
			shifted.EndMs = c.EndMs + offset
			shifted.TimestampMs = shifted.StartMs
			captions = append(captions, shifted)
		}
	}
	return captions
}

// ====================================
// STAGE 5: RENDER SUBMISSION
// ====================================

func (o *Orchestrator) stageRender(ctx context.Context, rs *runState) error {
	p := rs.project
	if p.VideoID != nil || p.RenderID != "" {
		return nil
	}
	if o.deps.Renderer == nil {
		return common.CollaboratorError("No renderer configured", nil)
	}
	script, err := o.requireScript(ctx, rs)
	if err != nil {
		return err
	}
	if len(script.Captions) == 0 {
		return common.ArtifactError("Captions not found")
	}

	backgrounds, err := o.deps.Assets.ListBackgrounds(ctx)
	if err != nil {
		return err
	}
	if len(backgrounds) == 0 {
		return common.ErrNoBackgroundAsset
	}
	background := backgrounds[o.intn(len(backgrounds))]

	bundle, err := o.castFor(ctx, rs)
	if err != nil {
		return err
	}

	req := RenderRequest{
		ProjectID:     p.ID,
		Script:        script,
		Timeline:      timeline.Compile(script, o.fps),
		BackgroundURL: background.URL,
		Characters:    bundle.characters,
	}
	var job *RenderJob
	err = o.step(ctx, func(ctx context.Context) error {
		var err error
		job, err = o.deps.Renderer.Submit(ctx, req)
		return err
	})
	if err != nil {
		return collaboratorFailure("Render submission", err)
	}
	if job == nil || job.JobID == "" {
		return common.CollaboratorError("Renderer returned no job id", nil)
	}
	if err := o.deps.Projects.AttachRender(ctx, p.ID, job.JobID, job.Bucket); err != nil {
		return err
	}
	p.RenderID = job.JobID
	p.BucketName = job.Bucket

	logger.GetAppLogger().WithFields(map[string]interface{}{
		"projectId":      p.ID.Hex(),
		"renderId":       job.JobID,
		"durationFrames": req.Timeline.TotalFrames,
	}).Info("🎞️ [RENDER] Đã gửi job render")
	return nil
}

// ====================================
// COMPLETION (project của automation account)
// ====================================

// stageComplete pop đầu hàng đợi topic nếu vẫn là topic của project, tối đa một lần mỗi project
func (o *Orchestrator) stageComplete(ctx context.Context, rs *runState) error {
	p := rs.project
	if !p.IsAccountTagged() || p.TopicConsumed || o.deps.Accounts == nil {
		return nil
	}
	log := logger.GetAppLogger().WithFields(map[string]interface{}{
		"projectId": p.ID.Hex(),
		"accountId": p.AccountID.Hex(),
		"topic":     p.Topic,
	})

	popped, err := o.deps.Accounts.PopTopicIfHead(ctx, *p.AccountID, p.Topic)
	if err != nil {
		// Render đã gửi, không đánh lỗi project vì hàng đợi
		log.WithError(err).Error("📋 [QUEUE] Pop topic thất bại")
		return nil
	}
	if !popped {
		log.Warn("📋 [QUEUE] Đầu hàng đợi không còn là topic của project, không pop")
	}
	if _, err := o.deps.Projects.MarkTopicConsumed(ctx, p.ID); err != nil {
		log.WithError(err).Error("📋 [QUEUE] Không đánh dấu được topicConsumed")
		return nil
	}
	p.TopicConsumed = true
	return nil
}

// collaboratorFailure giữ nguyên lỗi đã phân loại, bọc lỗi thô của dịch vụ ngoài
func collaboratorFailure(what string, err error) error {
	var ce *common.Error
	if errors.As(err, &ce) {
		return err
	}
	return common.CollaboratorError(fmt.Sprintf("%s failed: %v", what, err), err)
}
