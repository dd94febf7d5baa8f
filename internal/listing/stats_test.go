package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shams-connect/school-needs-api/internal/models"
)

func needRecord(priority models.NeedPriority, status models.NeedStatus, category models.NeedCategory) models.NeedDetail {
	return models.NeedDetail{Need: models.Need{Priority: priority, Status: status, Category: category}}
}

func TestNeedStatisticsEmptyCollection(t *testing.T) {
	stats := NeedStatistics(nil)
	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, 0, stats.FulfillmentRate)
	assert.Equal(t, models.NeedCategory(""), stats.MostCommonCategory)
}

func TestNeedStatisticsFulfillmentRateRounded(t *testing.T) {
	needs := []models.NeedDetail{
		needRecord(models.NeedPriorityHigh, models.NeedStatusPending, models.NeedCategoryFurniture),
		needRecord(models.NeedPriorityLow, models.NeedStatusFulfilled, models.NeedCategoryFurniture),
		needRecord(models.NeedPriorityMedium, models.NeedStatusPending, models.NeedCategorySupplies),
	}
	stats := NeedStatistics(needs)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 33, stats.FulfillmentRate)
	assert.Equal(t, 2, stats.ByStatus[models.NeedStatusPending])
	assert.Equal(t, 1, stats.ByStatus[models.NeedStatusFulfilled])
}

func TestNeedStatisticsRateWithinBounds(t *testing.T) {
	needs := []models.NeedDetail{
		needRecord(models.NeedPriorityLow, models.NeedStatusFulfilled, models.NeedCategoryOther),
		needRecord(models.NeedPriorityLow, models.NeedStatusFulfilled, models.NeedCategoryOther),
	}
	stats := NeedStatistics(needs)
	assert.Equal(t, 100, stats.FulfillmentRate)
	assert.GreaterOrEqual(t, stats.FulfillmentRate, 0)
	assert.LessOrEqual(t, stats.FulfillmentRate, 100)
}

func TestNeedStatisticsMostCommonCategory(t *testing.T) {
	needs := []models.NeedDetail{
		needRecord(models.NeedPriorityLow, models.NeedStatusPending, models.NeedCategoryFurniture),
		needRecord(models.NeedPriorityLow, models.NeedStatusPending, models.NeedCategoryEquipment),
		needRecord(models.NeedPriorityLow, models.NeedStatusPending, models.NeedCategoryFurniture),
		needRecord(models.NeedPriorityLow, models.NeedStatusPending, models.NeedCategoryEquipment),
		needRecord(models.NeedPriorityLow, models.NeedStatusPending, models.NeedCategoryEquipment),
	}
	stats := NeedStatistics(needs)
	assert.Equal(t, models.NeedCategoryEquipment, stats.MostCommonCategory)
}

func TestNeedStatisticsCategoryTieFirstMaxWins(t *testing.T) {
	// furniture reaches count 2 before supplies does, so it keeps the title.
	needs := []models.NeedDetail{
		needRecord(models.NeedPriorityLow, models.NeedStatusPending, models.NeedCategoryFurniture),
		needRecord(models.NeedPriorityLow, models.NeedStatusPending, models.NeedCategorySupplies),
		needRecord(models.NeedPriorityLow, models.NeedStatusPending, models.NeedCategoryFurniture),
		needRecord(models.NeedPriorityLow, models.NeedStatusPending, models.NeedCategorySupplies),
	}
	stats := NeedStatistics(needs)
	assert.Equal(t, models.NeedCategoryFurniture, stats.MostCommonCategory)
}

func TestNeedStatisticsUrgentRequiresPendingStatus(t *testing.T) {
	needs := []models.NeedDetail{
		needRecord(models.NeedPriorityHigh, models.NeedStatusPending, models.NeedCategoryOther),
		needRecord(models.NeedPriorityHigh, models.NeedStatusFulfilled, models.NeedCategoryOther),
		needRecord(models.NeedPriorityMedium, models.NeedStatusPending, models.NeedCategoryOther),
	}
	stats := NeedStatistics(needs)
	assert.Equal(t, 2, stats.HighPriority)
	assert.Equal(t, 1, stats.Urgent)
}

func TestSchoolStatisticsApprovalPercentage(t *testing.T) {
	schools := []models.School{
		{Status: models.SchoolStatusApproved, StudentCount: 100},
		{Status: models.SchoolStatusApproved, StudentCount: 200},
		{Status: models.SchoolStatusApproved, StudentCount: 50},
		{Status: models.SchoolStatusPending, StudentCount: 80},
	}
	stats := SchoolStatistics(schools)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 75, stats.ApprovalPercentage)
	assert.Equal(t, 430, stats.TotalStudents)
}

func TestSchoolStatisticsEmptyCollection(t *testing.T) {
	stats := SchoolStatistics(nil)
	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, 0, stats.ApprovalPercentage)
}
