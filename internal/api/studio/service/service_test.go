package studiosvc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"shorts_farm/internal/api/studio/models"
)

func TestResetUpdate_FromScratch(t *testing.T) {
	u := resetUpdate(models.ProjectReset{
		Status:      models.ProjectStatusGathering,
		ClearPlan:   true,
		ClearScript: true,
		ClearVideo:  true,
		ClearRender: true,
	})

	assert.Equal(t, models.ProjectStatusGathering, u.Set["status"])
	for _, f := range []string{"statusMessage", "plan", "scriptId", "videoId", "renderId", "bucketName"} {
		assert.Contains(t, u.Unset, f, "Rerun từ đầu phải xóa %s", f)
	}
	assert.NotContains(t, u.Unset, "socials", "Không chọn ClearSocials thì giữ socials")
}

func TestResetUpdate_RerenderKeepsMessage(t *testing.T) {
	u := resetUpdate(models.ProjectReset{
		Status:        models.ProjectStatusRendering,
		StatusMessage: "Re-rendering video",
		ClearVideo:    true,
		ClearRender:   true,
	})

	assert.Equal(t, "Re-rendering video", u.Set["statusMessage"])
	assert.NotContains(t, u.Unset, "statusMessage")
	assert.NotContains(t, u.Unset, "plan", "Rerender giữ plan")
	assert.NotContains(t, u.Unset, "scriptId", "Rerender giữ script")
}

func TestMediaURL(t *testing.T) {
	id := primitive.NewObjectID()
	assert.Equal(t, "https://api.example.com/api/v1/media/"+id.Hex(), MediaURL("https://api.example.com/", id))
}
