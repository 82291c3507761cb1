package utility

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"shorts_farm/internal/common"
)

func TestParseObjectID(t *testing.T) {
	id := primitive.NewObjectID()
	got, err := ParseObjectID(id.Hex())
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseObjectID("khong-hop-le")
	var cerr *common.Error
	require.True(t, errors.As(err, &cerr), "Phải trả về common.Error")
	assert.Equal(t, common.StatusBadRequest, cerr.StatusCode)
}

func TestToMap_KeepsBsonNames(t *testing.T) {
	type sample struct {
		ID    primitive.ObjectID `bson:"_id,omitempty"`
		Topic string             `bson:"topic"`
		Queue []string           `bson:"topicQueue"`
	}
	m, err := ToMap(sample{Topic: "cá voi", Queue: []string{"a"}})
	require.NoError(t, err)
	assert.Equal(t, "cá voi", m["topic"])
	assert.NotContains(t, m, "_id", "ObjectID rỗng với omitempty không được ghi")
	assert.Contains(t, m, "topicQueue")
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.5 KB", FormatBytes(1536))
	assert.Equal(t, "2.0 MB", FormatBytes(2*1024*1024))
}

func TestGoProtect_RecoversPanic(t *testing.T) {
	done := make(chan struct{})
	GoProtect(func() {
		defer close(done)
		panic("boom")
	})
	<-done
}
