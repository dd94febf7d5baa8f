package listing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shams-connect/school-needs-api/internal/models"
)

func needWith(id string, priority models.NeedPriority, createdAt time.Time) models.NeedDetail {
	return models.NeedDetail{Need: models.Need{ID: id, Priority: priority, CreatedAt: createdAt}}
}

func TestSortNeedsByPriorityRank(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	needs := []models.NeedDetail{
		needWith("a", models.NeedPriorityHigh, base),
		needWith("b", models.NeedPriorityLow, base),
		needWith("c", models.NeedPriorityMedium, base),
	}

	got := SortNeeds(needs, SortPriority)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
	assert.Equal(t, "b", got[2].ID)

	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, PriorityRank(got[i-1].Priority), PriorityRank(got[i].Priority))
	}
}

func TestSortNeedsStability(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	needs := []models.NeedDetail{
		needWith("first", models.NeedPriorityMedium, base),
		needWith("second", models.NeedPriorityMedium, base.Add(time.Minute)),
		needWith("third", models.NeedPriorityHigh, base),
	}

	got := SortNeeds(needs, SortPriority)
	assert.Equal(t, "third", got[0].ID)
	assert.Equal(t, "first", got[1].ID)
	assert.Equal(t, "second", got[2].ID)
}

func TestSortNeedsIdempotent(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	needs := []models.NeedDetail{
		needWith("a", models.NeedPriorityLow, base.Add(time.Hour)),
		needWith("b", models.NeedPriorityHigh, base),
		needWith("c", models.NeedPriorityMedium, base.Add(2*time.Hour)),
	}

	for _, key := range []SortKey{SortNewest, SortOldest, SortPriority} {
		once := SortNeeds(needs, key)
		twice := SortNeeds(once, key)
		assert.Equal(t, once, twice, "key %s", key)
	}
}

func TestSortNeedsNewestOldest(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	needs := []models.NeedDetail{
		needWith("mid", models.NeedPriorityLow, base.Add(time.Hour)),
		needWith("old", models.NeedPriorityLow, base),
		needWith("new", models.NeedPriorityLow, base.Add(2*time.Hour)),
	}

	newest := SortNeeds(needs, SortNewest)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{newest[0].ID, newest[1].ID, newest[2].ID})

	oldest := SortNeeds(needs, SortOldest)
	assert.Equal(t, []string{"old", "mid", "new"}, []string{oldest[0].ID, oldest[1].ID, oldest[2].ID})
}

func TestSortNeedsZeroTimestampSortsAsLowestInstant(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	needs := []models.NeedDetail{
		needWith("dated", models.NeedPriorityLow, base),
		needWith("undated", models.NeedPriorityLow, time.Time{}),
	}

	oldest := SortNeeds(needs, SortOldest)
	assert.Equal(t, "undated", oldest[0].ID)

	newest := SortNeeds(needs, SortNewest)
	assert.Equal(t, "dated", newest[0].ID)
}

func TestPriorityRankUnknownSortsLast(t *testing.T) {
	assert.Equal(t, 4, PriorityRank(models.NeedPriority("critical")))

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	needs := []models.NeedDetail{
		needWith("weird", models.NeedPriority("critical"), base),
		needWith("low", models.NeedPriorityLow, base),
	}
	got := SortNeeds(needs, SortPriority)
	assert.Equal(t, "low", got[0].ID)
	assert.Equal(t, "weird", got[1].ID)
}

func TestSortNeedsDoesNotMutateInput(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	needs := []models.NeedDetail{
		needWith("b", models.NeedPriorityLow, base),
		needWith("a", models.NeedPriorityHigh, base.Add(time.Hour)),
	}
	_ = SortNeeds(needs, SortPriority)
	assert.Equal(t, "b", needs[0].ID)
}

func TestParseSortKeyDefaultsToNewest(t *testing.T) {
	assert.Equal(t, SortNewest, ParseSortKey(""))
	assert.Equal(t, SortNewest, ParseSortKey("bogus"))
	assert.Equal(t, SortOldest, ParseSortKey("oldest"))
	assert.Equal(t, SortPriority, ParseSortKey("priority"))
}

func TestSortSchoolsNewestFirstByDefault(t *testing.T) {
	base := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	schools := []models.School{
		{ID: "s1", CreatedAt: base},
		{ID: "s2", CreatedAt: base.Add(time.Hour)},
	}
	got := SortSchools(schools, SortNewest)
	assert.Equal(t, "s2", got[0].ID)

	got = SortSchools(schools, SortOldest)
	assert.Equal(t, "s1", got[0].ID)
}
