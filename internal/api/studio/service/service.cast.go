package studiosvc

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	basesvc "shorts_farm/internal/api/base/service"
	"shorts_farm/internal/api/studio/models"
	"shorts_farm/internal/global"
)

// CastService đọc cast, nhân vật và asset
type CastService struct {
	casts      *basesvc.BaseServiceMongoImpl[models.Cast]
	characters *basesvc.BaseServiceMongoImpl[models.Character]
	assets     *basesvc.BaseServiceMongoImpl[models.Asset]
}

// NewCastService tạo service trên casts, characters và assets
func NewCastService(db *mongo.Database) *CastService {
	return &CastService{
		casts:      basesvc.NewBaseServiceMongo[models.Cast](db.Collection(global.MongoDB_ColNames.Casts)),
		characters: basesvc.NewBaseServiceMongo[models.Character](db.Collection(global.MongoDB_ColNames.Characters)),
		assets:     basesvc.NewBaseServiceMongo[models.Asset](db.Collection(global.MongoDB_ColNames.Assets)),
	}
}

// GetCast lấy cast theo id
func (s *CastService) GetCast(ctx context.Context, id primitive.ObjectID) (*models.Cast, error) {
	c, err := s.casts.FindOneById(ctx, id)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCasts tất cả cast theo tên
func (s *CastService) ListCasts(ctx context.Context) ([]models.Cast, error) {
	return s.casts.Find(ctx, nil, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

// CreateCast tạo cast
func (s *CastService) CreateCast(ctx context.Context, cast models.Cast) (*models.Cast, error) {
	created, err := s.casts.InsertOne(ctx, cast)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// ListCharacters nhân vật của cast theo thứ tự tạo
func (s *CastService) ListCharacters(ctx context.Context, castID primitive.ObjectID) ([]models.Character, error) {
	return s.characters.Find(ctx, bson.M{"castId": castID}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

// GetCharacter lấy nhân vật theo id
func (s *CastService) GetCharacter(ctx context.Context, id primitive.ObjectID) (*models.Character, error) {
	c, err := s.characters.FindOneById(ctx, id)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCharacter thêm nhân vật vào cast
func (s *CastService) CreateCharacter(ctx context.Context, character models.Character) (*models.Character, error) {
	created, err := s.characters.InsertOne(ctx, character)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// ListCharacterAssets asset biểu cảm của các nhân vật
func (s *CastService) ListCharacterAssets(ctx context.Context, characterIDs []primitive.ObjectID) ([]models.Asset, error) {
	if len(characterIDs) == 0 {
		return nil, nil
	}
	return s.assets.Find(ctx, bson.M{
		"type":        models.AssetTypeCharacter,
		"characterId": bson.M{"$in": characterIDs},
	}, nil)
}

// ListBackgrounds asset video nền
func (s *CastService) ListBackgrounds(ctx context.Context) ([]models.Asset, error) {
	return s.assets.Find(ctx, bson.M{"type": models.AssetTypeBackground}, nil)
}

// CreateAsset thêm asset vào thư viện
func (s *CastService) CreateAsset(ctx context.Context, asset models.Asset) (*models.Asset, error) {
	created, err := s.assets.InsertOne(ctx, asset)
	if err != nil {
		return nil, err
	}
	return &created, nil
}
