package store

import (
	"math"
	"time"

	"github.com/rcliao/trivia/internal/embedding"
)

// scoreInputs carries the Scorer's per-candidate inputs (spec §4.4).
type scoreInputs struct {
	Distance       float64
	UpdatedAt      time.Time
	RecallCount    int
	UsefulCount    int
	NotUsefulCount int
	HasBoostedTag  bool
	LinkDegree     int
	Now            time.Time
}

// score computes the composite rank score and the similarity component
// it was built from, per spec §4.4's formula verbatim.
func score(in scoreInputs) (total, similarity float64) {
	similarity = embedding.CosineFromL2(in.Distance)

	ageDays := in.Now.Sub(in.UpdatedAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	recency := math.Exp(-ageDays / RecencyHalfLifeDays)

	frequency := math.Log1p(float64(in.RecallCount)) / math.Log1p(FrequencySaturation)

	linkDegree := in.LinkDegree
	if linkDegree > LinkBoostMax {
		linkDegree = LinkBoostMax
	}
	linkBoost := float64(linkDegree) * LinkBoostPerLink

	ratingTotal := in.UsefulCount + in.NotUsefulCount
	ratingBoost := RatingBoostScale * float64(in.UsefulCount-in.NotUsefulCount) / float64(1+ratingTotal)

	var tagBoost float64
	if in.HasBoostedTag {
		tagBoost = TagBoostValue
	}

	total = WeightSimilarity*similarity + WeightRecency*recency + WeightFrequency*frequency +
		linkBoost + ratingBoost + tagBoost

	return total, similarity
}
