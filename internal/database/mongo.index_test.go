package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"shorts_farm/internal/api/studio/models"
)

func TestParseIndexTag(t *testing.T) {
	got := parseIndexTag("single:1;compound:a_b,order:-1")
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0]["single"])
	assert.Equal(t, "a_b", got[1]["compound"])
	assert.Equal(t, "-1", got[1]["order"])
}

func TestIndexModels_ScheduledPost(t *testing.T) {
	idx := IndexModels(models.ScheduledPost{})

	names := map[string]bson.D{}
	for _, m := range idx {
		require.NotNil(t, m.Options.Name)
		names[*m.Options.Name] = m.Keys.(bson.D)
	}
	assert.Contains(t, names, "projectId_single")
	assert.Contains(t, names, "accountId_single")
	require.Contains(t, names, "status_publish_at", "Compound index theo tên group")
	assert.Equal(t, bson.D{{Key: "status", Value: 1}, {Key: "publishAt", Value: 1}}, names["status_publish_at"],
		"Thứ tự field theo thứ tự khai báo trong struct")
}

func TestIndexModels_Unique(t *testing.T) {
	idx := IndexModels(&models.UserCredit{})
	require.Len(t, idx, 1)
	assert.Equal(t, "userId_unique", *idx[0].Options.Name)
	require.NotNil(t, idx[0].Options.Unique)
	assert.True(t, *idx[0].Options.Unique)
}
