// Package timeline tính timeline theo frame cho một script: mỗi lượt thoại bắt đầu ở frame nào,
// kéo dài bao nhiêu frame, mỗi scene chiếm đoạn nào và tổng độ dài video.
//
// Compile là hàm thuần: cùng script + fps luôn cho cùng kết quả. Preview (API) và render
// (kích thước composition) đều gọi hàm này độc lập nên kết quả bắt buộc phải khớp nhau.
package timeline

import (
	"math"
	"sort"
	"unicode/utf8"

	"shorts_farm/internal/api/studio/models"
)

// Thông số composition
const (
	CompositionID = "ShortsFarm"
	Width         = 1080
	Height        = 1920
	DefaultFPS    = 30
)

const (
	// SecondsPerChar ước lượng thời lượng khi lượt thoại chưa có audio
	SecondsPerChar = 0.1
	// BufferSeconds khoảng nghỉ giữa hai lượt thoại
	BufferSeconds = 0.5
	// DefaultDurationSeconds độ dài mặc định khi script rỗng
	DefaultDurationSeconds = 60
)

// sai số cho phép khi nhân float trước khi làm tròn lên (0.7*30 = 21.000000000000004)
const ceilEpsilon = 1e-9

// Turn vị trí của một lượt thoại trên timeline
type Turn struct {
	SceneIndex       int    `json:"sceneIndex"` // Index trong script.Scenes (trước khi sắp xếp)
	TurnIndex        int    `json:"turnIndex"`  // Index trong scene.Dialogues
	SceneNumber      int    `json:"sceneNumber"`
	CharacterID      string `json:"characterId"`
	Line             string `json:"line"`
	Expression       string `json:"expression"`
	AssetURL         string `json:"assetUrl,omitempty"`
	VoiceURL         string `json:"voiceUrl,omitempty"`
	StartFrame       int    `json:"startFrame"`
	DurationInFrames int    `json:"durationInFrames"`
	Estimated        bool   `json:"estimated"` // true nếu thời lượng là ước lượng theo số ký tự
}

// EndFrame frame ngay sau khi lượt thoại kết thúc
func (t Turn) EndFrame() int {
	return t.StartFrame + t.DurationInFrames
}

// Scene đoạn timeline của một scene
type Scene struct {
	SceneNumber      int    `json:"sceneNumber"`
	ContentImageURL  string `json:"contentImageUrl,omitempty"`
	StartFrame       int    `json:"startFrame"`
	DurationInFrames int    `json:"durationInFrames"`
	Turns            []Turn `json:"turns"`
}

// Timeline kết quả biên dịch
type Timeline struct {
	CompositionID string  `json:"compositionId"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	FPS           int     `json:"fps"`
	TotalFrames   int     `json:"durationInFrames"` // Giá trị cursor cuối cùng, dùng để đặt kích thước render
	Scenes        []Scene `json:"scenes"`
}

// Compile biên dịch script thành timeline. fps <= 0 dùng DefaultFPS.
func Compile(script *models.Script, fps int) Timeline {
	if fps <= 0 {
		fps = DefaultFPS
	}
	tl := Timeline{
		CompositionID: CompositionID,
		Width:         Width,
		Height:        Height,
		FPS:           fps,
		Scenes:        []Scene{},
	}

	if script == nil || script.TurnCount() == 0 {
		tl.TotalFrames = DefaultDurationSeconds * fps
		if script != nil {
			// Giữ các scene rỗng để preview vẫn thấy ảnh nội dung
			for _, idx := range sceneOrder(script.Scenes) {
				sc := script.Scenes[idx]
				tl.Scenes = append(tl.Scenes, Scene{SceneNumber: sc.SceneNumber, ContentImageURL: sc.ContentImageURL, Turns: []Turn{}})
			}
		}
		return tl
	}

	bufferFrames := CeilFrames(BufferSeconds, fps)
	cursor := 0

	for _, idx := range sceneOrder(script.Scenes) {
		sc := script.Scenes[idx]
		out := Scene{
			SceneNumber:     sc.SceneNumber,
			ContentImageURL: sc.ContentImageURL,
			StartFrame:      cursor,
			Turns:           make([]Turn, 0, len(sc.Dialogues)),
		}
		for j, d := range sc.Dialogues {
			seconds, estimated := TurnDurationSeconds(d)
			frames := CeilFrames(seconds, fps)
			if frames < 1 {
				frames = 1
			}
			out.Turns = append(out.Turns, Turn{
				SceneIndex:       idx,
				TurnIndex:        j,
				SceneNumber:      sc.SceneNumber,
				CharacterID:      d.CharacterID.Hex(),
				Line:             d.Line,
				Expression:       d.Expression,
				AssetURL:         d.AssetURL,
				VoiceURL:         d.VoiceURL,
				StartFrame:       cursor,
				DurationInFrames: frames,
				Estimated:        estimated,
			})
			cursor += frames + bufferFrames
		}
		out.DurationInFrames = cursor - out.StartFrame
		tl.Scenes = append(tl.Scenes, out)
	}

	tl.TotalFrames = cursor
	return tl
}

// TurnDurationSeconds thời lượng audio đã đo, nếu chưa có thì ước lượng theo số ký tự.
// Giá trị bool trả về true khi là ước lượng.
func TurnDurationSeconds(d models.DialogueTurn) (float64, bool) {
	if d.AudioDurationSeconds != nil && *d.AudioDurationSeconds > 0 && !math.IsNaN(*d.AudioDurationSeconds) {
		return *d.AudioDurationSeconds, false
	}
	return float64(utf8.RuneCountInString(d.Line)) * SecondsPerChar, true
}

// CeilFrames đổi giây sang số frame, làm tròn lên
func CeilFrames(seconds float64, fps int) int {
	if seconds <= 0 {
		return 0
	}
	return int(math.Ceil(seconds*float64(fps) - ceilEpsilon))
}

// FrameToMs đổi frame sang mili giây
func FrameToMs(frame, fps int) int64 {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return int64(math.Round(float64(frame) * 1000 / float64(fps)))
}

// MsToFrame đổi mili giây sang frame (làm tròn xuống)
func MsToFrame(ms int64, fps int) int {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return int(ms * int64(fps) / 1000)
}

// Turns danh sách lượt thoại theo thứ tự phát
func (t Timeline) Turns() []Turn {
	var out []Turn
	for _, sc := range t.Scenes {
		out = append(out, sc.Turns...)
	}
	return out
}

// LastTurnEnd frame kết thúc của lượt thoại cuối (không gồm khoảng nghỉ cuối)
func (t Timeline) LastTurnEnd() int {
	turns := t.Turns()
	if len(turns) == 0 {
		return 0
	}
	return turns[len(turns)-1].EndFrame()
}

// DurationSeconds tổng độ dài video theo giây
func (t Timeline) DurationSeconds() float64 {
	if t.FPS <= 0 {
		return 0
	}
	return float64(t.TotalFrames) / float64(t.FPS)
}

// TurnStartMs thời điểm bắt đầu (ms) của lượt thoại (sceneIndex, turnIndex) theo index gốc trong script
func (t Timeline) TurnStartMs(sceneIndex, turnIndex int) (int64, bool) {
	for _, sc := range t.Scenes {
		for _, turn := range sc.Turns {
			if turn.SceneIndex == sceneIndex && turn.TurnIndex == turnIndex {
				return FrameToMs(turn.StartFrame, t.FPS), true
			}
		}
	}
	return 0, false
}

// sceneOrder index các scene theo sceneNumber tăng dần (ổn định khi trùng)
func sceneOrder(scenes []models.Scene) []int {
	order := make([]int, len(scenes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scenes[order[a]].SceneNumber < scenes[order[b]].SceneNumber
	})
	return order
}
