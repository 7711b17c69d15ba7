package hamd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestClassifySeverity(t *testing.T) {
	cases := map[int]Severity{
		0:  SeverityNormal,
		7:  SeverityNormal,
		8:  SeverityMild,
		13: SeverityMild,
		14: SeverityModerate,
		19: SeveritySevere,
		23: SeverityVerySevere,
		52: SeverityVerySevere,
	}
	for score, want := range cases {
		got, ok := ClassifySeverity(intPtr(score))
		require.True(t, ok)
		assert.Equal(t, want, got, "score %d", score)
	}
	_, ok := ClassifySeverity(nil)
	assert.False(t, ok)
}

func TestImprovementRateUndetermined(t *testing.T) {
	assert.False(t, ImprovementRate(nil, intPtr(10)).Known)
	assert.False(t, ImprovementRate(intPtr(0), intPtr(10)).Known)
	assert.False(t, ImprovementRate(intPtr(20), nil).Known)

	rate := ImprovementRate(intPtr(20), intPtr(16))
	require.True(t, rate.Known)
	assert.InDelta(t, 0.2, rate.Value, 1e-9)
	assert.Equal(t, 20.0, rate.Percent())
}

func TestClassifyResponse(t *testing.T) {
	assert.Equal(t, StatusRemission, ClassifyResponse(intPtr(7), ImprovementRate(intPtr(20), intPtr(7))))
	assert.Equal(t, StatusResponse, ClassifyResponse(intPtr(10), ImprovementRate(intPtr(20), intPtr(10))))
	assert.Equal(t, StatusNoResponse, ClassifyResponse(intPtr(19), ImprovementRate(intPtr(20), intPtr(19))))
	assert.Equal(t, StatusNoResponse, ClassifyResponse(intPtr(19), Rate{}))
	assert.Equal(t, StatusNotEvaluated, ClassifyResponse(nil, Rate{}))
}

func TestRecommend(t *testing.T) {
	t.Run("pending without week3", func(t *testing.T) {
		rec := Recommend(&Scores{HAMD17: intPtr(20)}, nil)
		assert.Equal(t, RecommendationPending, rec.Status)
	})

	t.Run("remission on HAMD21", func(t *testing.T) {
		rec := Recommend(&Scores{HAMD17: intPtr(20)}, &Scores{HAMD21: intPtr(9)})
		assert.Equal(t, RecommendationRemission, rec.Status)
		assert.Equal(t, "HAMD21", rec.Scale)
	})

	t.Run("ineffective below twenty percent", func(t *testing.T) {
		rec := Recommend(&Scores{HAMD17: intPtr(20)}, &Scores{HAMD17: intPtr(18)})
		assert.Equal(t, RecommendationIneffective, rec.Status)
		require.NotNil(t, rec.Improvement)
		assert.InDelta(t, 0.1, *rec.Improvement, 1e-9)
	})

	t.Run("effective at twenty percent", func(t *testing.T) {
		rec := Recommend(&Scores{HAMD17: intPtr(20)}, &Scores{HAMD17: intPtr(16)})
		assert.Equal(t, RecommendationEffective, rec.Status)
	})

	t.Run("effective without baseline", func(t *testing.T) {
		rec := Recommend(nil, &Scores{HAMD17: intPtr(16)})
		assert.Equal(t, RecommendationEffective, rec.Status)
		assert.Nil(t, rec.Improvement)
	})
}
