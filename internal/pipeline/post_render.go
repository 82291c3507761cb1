package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	automodels "shorts_farm/internal/api/automation/models"
	"shorts_farm/internal/api/studio/models"
	"shorts_farm/internal/common"
	"shorts_farm/internal/logger"
)

// NextDailyOccurrence lần kế tiếp (UTC) của giờ trong ngày "HH:MM" tính từ now, luôn sau now
func NextDailyOccurrence(schedule string, now time.Time) (time.Time, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(schedule))
	if err != nil {
		return time.Time{}, common.ValidationError(fmt.Sprintf("Invalid time of day %q, expected HH:MM", schedule))
	}
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next, nil
}

// RunPostRender thumbnail prompt -> ảnh thumbnail -> social copy -> lưu -> hẹn giờ đăng (nếu có lịch).
// Lỗi được ghi vào socialError của project, không đổi status.
func (o *Orchestrator) RunPostRender(ctx context.Context, projectID, videoID primitive.ObjectID, videoURL string) error {
	log := logger.GetAppLogger().WithFields(map[string]interface{}{
		"projectId": projectID.Hex(),
		"videoId":   videoID.Hex(),
	})
	if o.deps.Social == nil || o.deps.Images == nil || o.deps.Blobs == nil {
		log.Info("📣 [POST_RENDER] Chưa cấu hình social/image, bỏ qua")
		return nil
	}

	err := o.postRender(ctx, projectID, videoID, videoURL)
	if err != nil {
		if rerr := o.deps.Projects.RecordSocialError(ctx, projectID, err.Error()); rerr != nil {
			log.WithError(rerr).Error("📣 [POST_RENDER] Không ghi được socialError")
		}
		return err
	}
	log.Info("📣 [POST_RENDER] Hoàn tất")
	return nil
}

func (o *Orchestrator) postRender(ctx context.Context, projectID, videoID primitive.ObjectID, videoURL string) error {
	p, err := o.deps.Projects.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	rs := &runState{project: p}
	script, err := o.requireScript(ctx, rs)
	if err != nil {
		return err
	}
	bundle, err := o.castFor(ctx, rs)
	if err != nil {
		return err
	}

	var account *automodels.Account
	if p.IsAccountTagged() && o.deps.Accounts != nil {
		account, err = o.deps.Accounts.GetAccount(ctx, *p.AccountID)
		if err != nil {
			return err
		}
	}

	req := SocialRequest{Topic: p.Topic, Script: script, Characters: bundle.characters}
	if account != nil {
		req.AccountName = account.DisplayName
		req.AccountBio = account.Bio
	}

	socials := models.Socials{}
	err = o.step(ctx, func(ctx context.Context) error {
		var err error
		socials.ThumbnailPrompt, err = o.deps.Social.ThumbnailPrompt(ctx, req)
		return err
	})
	if err != nil {
		return collaboratorFailure("Thumbnail prompt", err)
	}

	var image []byte
	err = o.step(ctx, func(ctx context.Context) error {
		var err error
		image, err = o.deps.Images.Generate(ctx, socials.ThumbnailPrompt)
		return err
	})
	if err != nil {
		return collaboratorFailure("Thumbnail image", err)
	}
	socials.ThumbnailURL, err = o.deps.Blobs.Put(ctx, fmt.Sprintf("thumbnail-%s.png", uuid.NewString()), "image/png", image)
	if err != nil {
		return collaboratorFailure("Thumbnail upload", err)
	}

	err = o.step(ctx, func(ctx context.Context) error {
		var err error
		socials.SocialMediaCopy, err = o.deps.Social.SocialCopy(ctx, req)
		return err
	})
	if err != nil {
		return collaboratorFailure("Social copy", err)
	}

	if err := o.deps.Projects.SaveSocials(ctx, projectID, socials); err != nil {
		return err
	}

	if account == nil || o.deps.Posts == nil || account.PostSchedule == "" {
		return nil
	}
	platforms := account.PublishablePlatforms()
	if len(platforms) == 0 {
		return nil
	}
	publishAt, err := NextDailyOccurrence(account.PostSchedule, o.now())
	if err != nil {
		return err
	}
	for _, pl := range platforms {
		post := &models.ScheduledPost{
			ProjectID: projectID,
			VideoID:   videoID,
			AccountID: account.ID,
			Platform:  pl.Platform,
			VideoURL:  videoURL,
			Caption:   socials.SocialMediaCopy,
			CoverURL:  socials.ThumbnailURL,
			Status:    models.ScheduledPostStatusPending,
			PublishAt: publishAt.UnixMilli(),
		}
		if err := o.deps.Posts.SchedulePost(ctx, post); err != nil {
			return err
		}
		logger.GetAppLogger().WithFields(map[string]interface{}{
			"projectId": projectID.Hex(),
			"platform":  pl.Platform,
			"publishAt": publishAt.Format(time.RFC3339),
		}).Info("📅 [POST_RENDER] Đã hẹn giờ đăng bài")
	}
	return nil
}
