package database

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"shorts_farm/internal/logger"
)

// parseIndexTag tách tag index: các cấu hình cách nhau bởi ';', mỗi cấu hình là các
// cặp key:value cách nhau bởi ','. Ví dụ "single:1", "unique", "compound:status_publish_at".
func parseIndexTag(tag string) []map[string]string {
	var result []map[string]string
	for _, part := range strings.Split(tag, ";") {
		entry := map[string]string{}
		for _, sub := range strings.Split(part, ",") {
			k, v, _ := strings.Cut(strings.TrimSpace(sub), ":")
			if k != "" {
				entry[k] = v
			}
		}
		if len(entry) > 0 {
			result = append(result, entry)
		}
	}
	return result
}

func bsonFieldName(f reflect.StructField) string {
	name := strings.Split(f.Tag.Get("bson"), ",")[0]
	if name == "-" {
		return ""
	}
	return name
}

// IndexModels dựng danh sách index từ tag `index` của model
func IndexModels(model interface{}) []mongo.IndexModel {
	t := reflect.TypeOf(model)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	var out []mongo.IndexModel
	compound := map[string]bson.D{}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag, ok := field.Tag.Lookup("index")
		if !ok {
			continue
		}
		name := bsonFieldName(field)
		if name == "" {
			continue
		}
		for _, cfg := range parseIndexTag(tag) {
			order := 1
			if cfg["order"] == "-1" {
				order = -1
			}
			if _, ok := cfg["single"]; ok {
				if cfg["single"] == "-1" {
					order = -1
				}
				out = append(out, mongo.IndexModel{
					Keys:    bson.D{{Key: name, Value: order}},
					Options: options.Index().SetName(name + "_single"),
				})
			}
			if _, ok := cfg["unique"]; ok {
				out = append(out, mongo.IndexModel{
					Keys:    bson.D{{Key: name, Value: 1}},
					Options: options.Index().SetName(name + "_unique").SetUnique(true),
				})
			}
			if group, ok := cfg["compound"]; ok && group != "" {
				compound[group] = append(compound[group], bson.E{Key: name, Value: order})
			}
		}
	}

	groups := make([]string, 0, len(compound))
	for g := range compound {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	for _, g := range groups {
		opts := options.Index().SetName(g)
		if strings.Contains(g, "_unique") {
			opts.SetUnique(true)
		}
		out = append(out, mongo.IndexModel{Keys: compound[g], Options: opts})
	}
	return out
}

// EnsureIndexes tạo index cho collection theo model. Index cùng tên cùng cấu hình được Mongo bỏ qua.
func EnsureIndexes(ctx context.Context, coll *mongo.Collection, model interface{}) error {
	models := IndexModels(model)
	if len(models) == 0 {
		return nil
	}
	names, err := coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return fmt.Errorf("create indexes for %s: %w", coll.Name(), err)
	}
	logger.GetAppLogger().WithFields(map[string]interface{}{
		"collection": coll.Name(),
		"indexes":    names,
	}).Debug("Đã đảm bảo index")
	return nil
}
