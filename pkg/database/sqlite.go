package database

import (
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yourusername/survey-rewards-api/internal/domain/entity"
)

// NewSQLiteDB открывает базу SQLite для локальной разработки и тестов.
// path ":memory:" создает базу в памяти. Схема создается через AutoMigrate.
func NewSQLiteDB(path string, logLevel logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// SQLite допускает одного писателя; для :memory: одно соединение = одна база
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("failed to enable sqlite foreign keys: %w", err)
	}

	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// AutoMigrate создает таблицы по сущностям (используется только с SQLite)
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&entity.User{},
		&entity.Survey{},
		&entity.Question{},
		&entity.SurveyResponse{},
		&entity.PointsTransaction{},
		&entity.InvalidToken{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// SeedSQLite заполняет пустую базу теми же данными, что и миграция 000002_seed
func SeedSQLite(db *gorm.DB) error {
	var count int64
	if err := db.Model(&entity.Survey{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		admin := &entity.User{
			Name:     "Admin",
			Email:    "admin@example.com",
			Password: string(hash),
			Category: entity.CategoryTechnology,
			Role:     entity.RoleAdmin,
		}
		if err := tx.Where("email = ?", admin.Email).FirstOrCreate(admin).Error; err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}

		for _, survey := range seedSurveys() {
			if err := tx.Create(&survey).Error; err != nil {
				return fmt.Errorf("seed survey %q: %w", survey.Title, err)
			}
		}
		log.Println("[Database] Тестовые данные SQLite загружены")
		return nil
	})
}

func seedSurveys() []entity.Survey {
	return []entity.Survey{
		{
			Title:       "Technology and Mobile Devices",
			Description: "Tell us how you use your phone and which features matter most to you.",
			Category:    entity.CategoryTechnology,
			Points:      100,
			Questions: []entity.Question{
				{Text: "Which smartphone brand do you use?", Type: entity.QuestionTypeSingleChoice,
					Options: entity.StringArray{"Apple", "Samsung", "Xiaomi", "Other"}, Position: 1},
				{Text: "Which features do you use daily?", Type: entity.QuestionTypeMultipleChoice,
					Options: entity.StringArray{"Camera", "Maps", "Messaging", "Games"}, Position: 2},
				{Text: "What would you improve in your current device?", Type: entity.QuestionTypeText,
					Options: entity.StringArray{}, Position: 3},
			},
		},
		{
			Title:       "Sports Habits",
			Description: "A short survey about how often and how you exercise.",
			Category:    entity.CategorySports,
			Points:      150,
			Questions: []entity.Question{
				{Text: "How often do you exercise?", Type: entity.QuestionTypeSingleChoice,
					Options: entity.StringArray{"Never", "Weekly", "Several times a week", "Daily"}, Position: 1},
				{Text: "Which sports do you enjoy?", Type: entity.QuestionTypeMultipleChoice,
					Options: entity.StringArray{"Running", "Football", "Swimming", "Cycling"}, Position: 2},
			},
		},
	}
}
