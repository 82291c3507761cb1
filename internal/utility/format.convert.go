package utility

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"shorts_farm/internal/common"
)

// FormatBytes chuyển số bytes thành chuỗi dễ đọc (KB, MB, GB)
func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// ParseObjectID đổi hex sang ObjectID, sai định dạng trả về lỗi 400
func ParseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, common.ValidationError(fmt.Sprintf("invalid id: %q", id))
	}
	return oid, nil
}
