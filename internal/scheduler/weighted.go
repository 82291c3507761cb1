package scheduler

import (
	"math"

	"go.mongodb.org/mongo-driver/bson/primitive"

	automodels "shorts_farm/internal/api/automation/models"
	"shorts_farm/internal/common"
)

// Float64Source nguồn số ngẫu nhiên trong [0, 1), *rand.Rand thỏa interface này
type Float64Source interface {
	Float64() float64
}

// PickWeighted chọn cast theo trọng số: rút r trong [0, total), cộng dồn trọng số và lấy phần tử
// đầu tiên có tổng cộng dồn > r. Trọng số âm, NaN, vô hạn hoặc tổng <= 0 thì lấy cast đầu tiên.
func PickWeighted(weights []automodels.CastWeight, rng Float64Source) (primitive.ObjectID, error) {
	if len(weights) == 0 {
		return primitive.NilObjectID, common.ErrNoCast
	}

	total := 0.0
	for _, w := range weights {
		if w.Weight < 0 || math.IsNaN(w.Weight) || math.IsInf(w.Weight, 0) {
			return weights[0].CastID, nil
		}
		total += w.Weight
	}
	if total <= 0 || math.IsInf(total, 0) {
		return weights[0].CastID, nil
	}

	r := rng.Float64() * total
	cumulative := 0.0
	for _, w := range weights {
		cumulative += w.Weight
		if cumulative > r {
			return w.CastID, nil
		}
	}
	// Sai số float khi r rất sát total
	return weights[0].CastID, nil
}
