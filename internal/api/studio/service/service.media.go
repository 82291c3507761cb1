package studiosvc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"shorts_farm/internal/common"
	"shorts_farm/internal/global"
	"shorts_farm/internal/logger"
	"shorts_farm/internal/utility"
)

// MediaService lưu audio và ảnh sinh ra trong GridFS, phục vụ qua /api/v1/media/:id
type MediaService struct {
	bucket  *gridfs.Bucket
	baseURL string
}

// NewMediaService tạo service; baseURL là địa chỉ công khai của API
func NewMediaService(db *mongo.Database, baseURL string) (*MediaService, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(global.MongoDB_ColNames.MediaBucket))
	if err != nil {
		return nil, fmt.Errorf("create gridfs bucket: %w", err)
	}
	return &MediaService{bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// MediaURL URL công khai của blob
func MediaURL(baseURL string, id primitive.ObjectID) string {
	return fmt.Sprintf("%s/api/v1/media/%s", strings.TrimRight(baseURL, "/"), id.Hex())
}

func deadline(ctx context.Context) time.Time {
	if d, ok := ctx.Deadline(); ok {
		return d
	}
	return time.Time{}
}

// Put lưu blob, trả về URL công khai
func (s *MediaService) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if err := s.bucket.SetWriteDeadline(deadline(ctx)); err != nil {
		return "", err
	}
	opts := options.GridFSUpload().SetMetadata(bson.M{"contentType": contentType})
	id, err := s.bucket.UploadFromStream(name, bytes.NewReader(data), opts)
	if err != nil {
		return "", common.ConvertMongoError(err)
	}
	logger.WithContext(ctx).WithFields(map[string]interface{}{
		"mediaId": id.Hex(),
		"name":    name,
		"size":    utility.FormatBytes(uint64(len(data))),
	}).Debug("💾 [MEDIA] Đã lưu blob")
	return MediaURL(s.baseURL, id), nil
}

// Open đọc toàn bộ blob kèm content type
func (s *MediaService) Open(ctx context.Context, id primitive.ObjectID) ([]byte, string, error) {
	if err := s.bucket.SetReadDeadline(deadline(ctx)); err != nil {
		return nil, "", err
	}
	stream, err := s.bucket.OpenDownloadStream(id)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, "", common.ErrNotFound
		}
		return nil, "", common.ConvertMongoError(err)
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, "", err
	}
	contentType := "application/octet-stream"
	if meta := stream.GetFile().Metadata; meta != nil {
		if v, ok := meta.Lookup("contentType").StringValueOK(); ok && v != "" {
			contentType = v
		}
	}
	return data, contentType, nil
}
