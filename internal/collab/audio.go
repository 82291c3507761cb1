package collab

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"mime/multipart"
	"strings"

	"shorts_farm/internal/api/studio/models"
	"shorts_farm/internal/pipeline"
)

// FishVoice text-to-speech qua Fish Audio
type FishVoice struct {
	client *Client
}

// NewFishVoice tạo synthesizer
func NewFishVoice(client *Client) *FishVoice {
	return &FishVoice{client: client}
}

// Synthesize trả về audio mp3 của text với giọng voiceID
func (f *FishVoice) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if voiceID == "" {
		return nil, errors.New("voice id is required")
	}
	body, err := json.Marshal(map[string]string{
		"text":         text,
		"reference_id": voiceID,
	})
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(ctx, Request{
		Method:      "POST",
		Path:        "/v1/tts",
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Body) == 0 {
		return nil, errors.New("TTS returned empty audio")
	}
	return resp.Body, nil
}

// WhisperTranscriber transcribe audio kèm timestamp từng từ
type WhisperTranscriber struct {
	client *Client
	model  string
}

// NewWhisperTranscriber tạo transcriber, model rỗng thì dùng whisper-1
func NewWhisperTranscriber(client *Client, model string) *WhisperTranscriber {
	if model == "" {
		model = "whisper-1"
	}
	return &WhisperTranscriber{client: client, model: model}
}

type whisperWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type whisperResponse struct {
	Text     string        `json:"text"`
	Duration float64       `json:"duration"`
	Words    []whisperWord `json:"words"`
}

// Transcribe gửi audio dạng multipart, nhận verbose_json với timestamp theo từ
func (w *WhisperTranscriber) Transcribe(ctx context.Context, audio []byte) (*pipeline.Transcription, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"model", w.model},
		{"response_format", "verbose_json"},
		{"timestamp_granularities[]", "word"},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, err
		}
	}
	part, err := mw.CreateFormFile("file", "audio.mp3")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(audio); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	resp, err := w.client.Do(ctx, Request{
		Method:      "POST",
		Path:        "/audio/transcriptions",
		ContentType: mw.FormDataContentType(),
		Body:        buf.Bytes(),
	})
	if err != nil {
		return nil, err
	}
	var wr whisperResponse
	if err := json.Unmarshal(resp.Body, &wr); err != nil {
		return nil, fmt.Errorf("transcription decode: %w", err)
	}
	return &pipeline.Transcription{
		DurationSeconds: wr.Duration,
		Captions:        wordsToCaptions(wr.Text, wr.Words),
	}, nil
}

// wordsToCaptions đổi danh sách từ sang caption (ms). Dấu câu trong transcript được gắn lại
// vào từ tương ứng; mọi từ trừ từ đầu có khoảng trắng phía trước để ghép lại thành câu.
func wordsToCaptions(transcript string, words []whisperWord) []models.Caption {
	out := make([]models.Caption, 0, len(words))
	rest := transcript
	for i, word := range words {
		text := strings.TrimSpace(word.Word)
		// Lấy lại dấu câu đi kèm từ trong transcript
		if idx := strings.Index(rest, text); idx >= 0 && text != "" {
			end := idx + len(text)
			for end < len(rest) && strings.ContainsRune(".,!?;:'\")", rune(rest[end])) {
				end++
			}
			text = rest[idx:end]
			rest = rest[end:]
		}
		if i > 0 {
			text = " " + text
		}
		start := int64(math.Round(word.Start * 1000))
		out = append(out, models.Caption{
			Text:        text,
			StartMs:     start,
			EndMs:       int64(math.Round(word.End * 1000)),
			TimestampMs: start,
		})
	}
	return out
}

// OpenAIImages sinh ảnh qua images API dạng OpenAI
type OpenAIImages struct {
	client *Client
	model  string
	size   string
}

// NewOpenAIImages tạo generator, mặc định gpt-image-1 khổ dọc 1024x1536
func NewOpenAIImages(client *Client, model string) *OpenAIImages {
	if model == "" {
		model = "gpt-image-1"
	}
	return &OpenAIImages{client: client, model: model, size: "1024x1536"}
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
		URL     string `json:"url"`
	} `json:"data"`
}

// Generate trả về bytes ảnh png
func (o *OpenAIImages) Generate(ctx context.Context, prompt string) ([]byte, error) {
	var resp imageResponse
	err := o.client.DoJSON(ctx, "POST", "/images/generations", map[string]string{
		"model":   o.model,
		"prompt":  prompt,
		"size":    o.size,
		"quality": "high",
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("image API returned no image")
	}
	d := resp.Data[0]
	if d.B64JSON != "" {
		return decodeBase64(d.B64JSON)
	}
	if d.URL != "" {
		data, _, err := o.client.Download(ctx, d.URL)
		return data, err
	}
	return nil, errors.New("image API returned no image")
}

func decodeBase64(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("image decode: %w", err)
	}
	return data, nil
}
