package timeline

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"shorts_farm/internal/api/studio/models"
)

func dur(v float64) *float64 { return &v }

func sampleScript() *models.Script {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()
	return &models.Script{
		Scenes: []models.Scene{
			{
				SceneNumber: 2,
				Dialogues: []models.DialogueTurn{
					{CharacterID: b, Line: "Second scene first line", AudioDurationSeconds: dur(1.25)},
				},
			},
			{
				SceneNumber: 1,
				Dialogues: []models.DialogueTurn{
					{CharacterID: a, Line: "Hello there", AudioDurationSeconds: dur(2.0)},
					{CharacterID: b, Line: "abcdefg"}, // chưa có audio: 7 ký tự * 0.1s
					{CharacterID: a, Line: "", AudioDurationSeconds: dur(0)},
				},
			},
		},
	}
}

func TestCompile_FramesAndScenes(t *testing.T) {
	tl := Compile(sampleScript(), 30)

	require.Len(t, tl.Scenes, 2, "phải có 2 scene")
	assert.Equal(t, 1, tl.Scenes[0].SceneNumber, "scene phải được sắp theo sceneNumber")
	assert.Equal(t, 2, tl.Scenes[1].SceneNumber)

	turns := tl.Turns()
	require.Len(t, turns, 4)

	// 2.0s -> 60 frame, bắt đầu ở 0
	assert.Equal(t, 0, turns[0].StartFrame)
	assert.Equal(t, 60, turns[0].DurationInFrames)
	assert.False(t, turns[0].Estimated)

	// cursor = 60 + 15 buffer; 0.7s ước lượng -> 21 frame
	assert.Equal(t, 75, turns[1].StartFrame)
	assert.Equal(t, 21, turns[1].DurationInFrames, "0.7s * 30fps phải ra đúng 21 frame")
	assert.True(t, turns[1].Estimated)

	// dòng rỗng không có audio: tối thiểu 1 frame
	assert.Equal(t, 111, turns[2].StartFrame)
	assert.Equal(t, 1, turns[2].DurationInFrames, "thời lượng tối thiểu là 1 frame")

	// scene 1 kéo dài tới cursor sau lượt cuối (gồm buffer)
	assert.Equal(t, 0, tl.Scenes[0].StartFrame)
	assert.Equal(t, 127, tl.Scenes[0].DurationInFrames)

	// cursor không reset giữa các scene
	assert.Equal(t, 127, turns[3].StartFrame)
	assert.Equal(t, 38, turns[3].DurationInFrames, "1.25s * 30 = 37.5 -> 38")
	assert.Equal(t, 127, tl.Scenes[1].StartFrame)

	assert.Equal(t, 127+38+15, tl.TotalFrames)
	assert.Equal(t, 127+38, tl.LastTurnEnd())
	assert.Equal(t, 0, turns[3].SceneIndex, "SceneIndex giữ index gốc trong script")
}

func TestCompile_Monotonic(t *testing.T) {
	s := &models.Script{}
	lines := []string{"a", "bb", "", "dddd dddd dddd", "xyz"}
	for n := 1; n <= 6; n++ {
		sc := models.Scene{SceneNumber: n}
		for i, l := range lines {
			turn := models.DialogueTurn{Line: strings.Repeat(l, n)}
			if i%2 == 0 {
				turn.AudioDurationSeconds = dur(float64(n) * 0.37)
			}
			sc.Dialogues = append(sc.Dialogues, turn)
		}
		s.Scenes = append(s.Scenes, sc)
	}

	for _, fps := range []int{24, 25, 30, 60} {
		tl := Compile(s, fps)
		turns := tl.Turns()
		require.NotEmpty(t, turns)
		prev := -1
		for _, turn := range turns {
			assert.GreaterOrEqual(t, turn.StartFrame, prev, "startFrame phải không giảm (fps=%d)", fps)
			assert.GreaterOrEqual(t, turn.DurationInFrames, 1, "durationInFrames phải >= 1 (fps=%d)", fps)
			prev = turn.StartFrame
		}
		last := turns[len(turns)-1]
		assert.Equal(t, last.StartFrame+last.DurationInFrames, tl.LastTurnEnd())
		assert.Equal(t, tl.LastTurnEnd()+CeilFrames(BufferSeconds, fps), tl.TotalFrames)
	}
}

func TestCompile_Deterministic(t *testing.T) {
	s := sampleScript()
	first, err := json.Marshal(Compile(s, 30))
	require.NoError(t, err)
	second, err := json.Marshal(Compile(s, 30))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second), "biên dịch 2 lần phải cho kết quả giống hệt")
}

func TestCompile_EmptyScript(t *testing.T) {
	assert.Equal(t, 60*30, Compile(nil, 30).TotalFrames, "script nil dùng thời lượng mặc định")
	assert.Equal(t, 60*24, Compile(&models.Script{Scenes: []models.Scene{{SceneNumber: 1}}}, 24).TotalFrames)
	assert.Equal(t, DefaultFPS, Compile(nil, 0).FPS, "fps <= 0 dùng mặc định")
}

func TestTurnStartMs(t *testing.T) {
	tl := Compile(sampleScript(), 30)
	ms, ok := tl.TurnStartMs(1, 1)
	require.True(t, ok)
	assert.Equal(t, int64(2500), ms, "frame 75 ở 30fps = 2500ms")

	_, ok = tl.TurnStartMs(5, 0)
	assert.False(t, ok)
}
