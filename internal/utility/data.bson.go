package utility

import (
	"go.mongodb.org/mongo-driver/bson"
)

// ToMap chuyển struct thành map theo bson tag, giữ nguyên kiểu ObjectID
func ToMap(s interface{}) (map[string]interface{}, error) {
	data, err := bson.Marshal(s)
	if err != nil {
		return nil, err
	}
	out := map[string]interface{}{}
	if err := bson.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
