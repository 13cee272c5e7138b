package entity

// Категории опросов и интересов пользователя
const (
	CategoryTechnology    = "Technology"
	CategoryHealthcare    = "Healthcare"
	CategoryEducation     = "Education"
	CategoryFinance       = "Finance"
	CategoryEntertainment = "Entertainment"
	CategorySports        = "Sports"
	CategoryOther         = "Other"
)

// Categories возвращает закрытый список допустимых категорий в порядке отображения
func Categories() []string {
	return []string{
		CategoryTechnology,
		CategoryHealthcare,
		CategoryEducation,
		CategoryFinance,
		CategoryEntertainment,
		CategorySports,
		CategoryOther,
	}
}

// IsValidCategory проверяет, входит ли значение в список категорий (с учетом регистра)
func IsValidCategory(category string) bool {
	for _, c := range Categories() {
		if c == category {
			return true
		}
	}
	return false
}
