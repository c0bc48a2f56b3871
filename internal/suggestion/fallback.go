package suggestion

import (
	"github.com/bizmatters/agent-builder/arch-customizer/internal/models"
)

// fallbackTable is served whenever the resolver cannot produce suggestions.
// Order is part of the contract.
var fallbackTable = []models.Suggestion{
	{
		ID:       "fallback-timestamps",
		Category: models.CategoryBestPractice,
		Priority: models.PriorityMedium,
		Title: models.Bilingual(
			"Add timestamp fields",
			"إضافة حقول الطوابع الزمنية",
		),
		Description: models.Bilingual(
			"Track when records are created and last updated by adding createdAt and updatedAt fields to every entity.",
			"تتبع وقت إنشاء السجلات وآخر تحديث لها بإضافة حقلي createdAt و updatedAt إلى كل كيان.",
		),
		CommandText:    "Add createdAt and updatedAt timestamp fields to all entities",
		AutoApplicable: true,
	},
	{
		ID:       "fallback-soft-delete",
		Category: models.CategoryDataIntegrity,
		Priority: models.PriorityMedium,
		Title: models.Bilingual(
			"Enable soft delete",
			"تفعيل الحذف المؤقت",
		),
		Description: models.Bilingual(
			"Keep deleted records recoverable by adding an isDeleted flag instead of removing rows.",
			"احتفظ بالسجلات المحذوفة قابلة للاسترجاع بإضافة علامة isDeleted بدلا من حذف الصفوف.",
		),
		CommandText:    "Add an isDeleted boolean field to all entities for soft delete",
		AutoApplicable: true,
	},
	{
		ID:       "fallback-audit-log",
		Category: models.CategorySecurity,
		Priority: models.PriorityLow,
		Title: models.Bilingual(
			"Add an audit log",
			"إضافة سجل تدقيق",
		),
		Description: models.Bilingual(
			"Record who changed what and when in a dedicated audit log entity.",
			"سجل من قام بالتغيير وماذا تغير ومتى في كيان مخصص لسجل التدقيق.",
		),
		CommandText:    "Add an AuditLog entity that records the user, action, entity and timestamp of every change",
		AutoApplicable: false,
	},
}

// Fallback returns a fresh copy of the fixed suggestion table
func Fallback() []models.Suggestion {
	out := make([]models.Suggestion, len(fallbackTable))
	copy(out, fallbackTable)
	return out
}
