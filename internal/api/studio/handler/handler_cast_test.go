package studiohdl

import (
	"context"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"shorts_farm/internal/api/studio/models"
	"shorts_farm/internal/common"
)

type fakeLibrary struct {
	casts      map[primitive.ObjectID]models.Cast
	characters map[primitive.ObjectID]models.Character
	assets     []models.Asset
}

func newFakeLibrary() *fakeLibrary {
	return &fakeLibrary{
		casts:      map[primitive.ObjectID]models.Cast{},
		characters: map[primitive.ObjectID]models.Character{},
	}
}

func (f *fakeLibrary) ListCasts(_ context.Context) ([]models.Cast, error) {
	out := make([]models.Cast, 0, len(f.casts))
	for _, c := range f.casts {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeLibrary) GetCast(_ context.Context, id primitive.ObjectID) (*models.Cast, error) {
	c, ok := f.casts[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &c, nil
}

func (f *fakeLibrary) CreateCast(_ context.Context, cast models.Cast) (*models.Cast, error) {
	cast.ID = primitive.NewObjectID()
	f.casts[cast.ID] = cast
	return &cast, nil
}

func (f *fakeLibrary) ListCharacters(_ context.Context, castID primitive.ObjectID) ([]models.Character, error) {
	var out []models.Character
	for _, c := range f.characters {
		if c.CastID == castID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeLibrary) GetCharacter(_ context.Context, id primitive.ObjectID) (*models.Character, error) {
	c, ok := f.characters[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &c, nil
}

func (f *fakeLibrary) CreateCharacter(_ context.Context, character models.Character) (*models.Character, error) {
	character.ID = primitive.NewObjectID()
	f.characters[character.ID] = character
	return &character, nil
}

func (f *fakeLibrary) CreateAsset(_ context.Context, asset models.Asset) (*models.Asset, error) {
	asset.ID = primitive.NewObjectID()
	f.assets = append(f.assets, asset)
	return &asset, nil
}

func (f *fakeLibrary) ListBackgrounds(_ context.Context) ([]models.Asset, error) {
	var out []models.Asset
	for _, a := range f.assets {
		if a.Type == models.AssetTypeBackground {
			out = append(out, a)
		}
	}
	return out, nil
}

func newCastFixture() (*fixture, *fakeLibrary) {
	lib := newFakeLibrary()
	h := NewCastHandler(lib)
	f := &fixture{app: fiber.New()}
	f.app.Get("/casts/:id", h.HandleGetCast)
	f.app.Post("/casts", h.HandleCreateCast)
	f.app.Post("/casts/:id/characters", h.HandleCreateCharacter)
	f.app.Post("/assets", h.HandleCreateAsset)
	f.app.Get("/assets/backgrounds", h.HandleListBackgrounds)
	return f, lib
}

func TestCastLibrary(t *testing.T) {
	f, lib := newCastFixture()

	status, body := f.do(t, "POST", "/casts", `{"name":" Đôi bạn ","dynamics":"Hay cãi nhau"}`, nil)
	require.Equal(t, 201, status, body)
	castID := body["data"].(map[string]interface{})["id"].(string)
	for _, c := range lib.casts {
		assert.Equal(t, "Đôi bạn", c.Name, "Tên được trim")
	}

	status, body = f.do(t, "POST", "/casts/"+castID+"/characters", `{"name":"Mèo","description":"Tò mò","voiceId":"v1"}`, nil)
	require.Equal(t, 201, status, body)
	charID := body["data"].(map[string]interface{})["id"].(string)

	status, _ = f.do(t, "POST", "/casts/"+primitive.NewObjectID().Hex()+"/characters", `{"name":"Chó"}`, nil)
	assert.Equal(t, 404, status, "Cast không tồn tại")

	status, body = f.do(t, "GET", "/casts/"+castID, "", nil)
	require.Equal(t, 200, status, body)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "Đôi bạn", data["name"])
	require.Len(t, data["characters"], 1)
	assert.Equal(t, charID, data["characters"].([]interface{})[0].(map[string]interface{})["id"])
}

func TestCreateAsset(t *testing.T) {
	f, lib := newCastFixture()
	cast, _ := lib.CreateCast(context.Background(), models.Cast{Name: "c"})
	char, _ := lib.CreateCharacter(context.Background(), models.Character{CastID: cast.ID, Name: "Mèo"})

	status, _ := f.do(t, "POST", "/assets", `{"type":"character-asset","name":"happy","url":"https://cdn/happy.png"}`, nil)
	assert.Equal(t, 400, status, "Asset nhân vật phải có characterId")

	status, body := f.do(t, "POST", "/assets", `{"type":"character-asset","name":"happy","url":"https://cdn/happy.png","characterId":"`+char.ID.Hex()+`"}`, nil)
	require.Equal(t, 201, status, body)
	require.Len(t, lib.assets, 1)
	require.NotNil(t, lib.assets[0].CastID)
	assert.Equal(t, cast.ID, *lib.assets[0].CastID, "castId lấy từ nhân vật")

	status, _ = f.do(t, "POST", "/assets", `{"type":"video","name":"x","url":"https://cdn/x.mp4"}`, nil)
	assert.Equal(t, 400, status, "Loại asset không hợp lệ")

	status, body = f.do(t, "GET", "/assets/backgrounds", "", nil)
	require.Equal(t, 200, status)
	assert.Empty(t, body["data"], "Chưa có video nền")

	status, _ = f.do(t, "POST", "/assets", `{"type":"background-asset","name":"city","url":"https://cdn/city.mp4"}`, nil)
	require.Equal(t, 201, status)
	_, body = f.do(t, "GET", "/assets/backgrounds", "", nil)
	assert.Len(t, body["data"], 1)
}
