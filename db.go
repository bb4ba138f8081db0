package main

import (
	"os"
	"strings"

	"jerseyocr/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var db *gorm.DB

func initDB() {
	var err error
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		logrus.Fatal("DB_DSN is not set. This service requires a Postgres DSN in DB_DSN.")
	}
	db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect postgres database: %v", err)
	}
	// Control schema migrations with env DB_AUTO_MIGRATE (default true). Any permission errors will be logged and ignored.
	shouldMigrate := true
	if v := os.Getenv("DB_AUTO_MIGRATE"); v != "" {
		lv := strings.ToLower(v)
		if lv == "false" || lv == "0" || lv == "no" {
			shouldMigrate = false
		}
	}
	// Ensure the roles master table exists first and seed it so users FK can be applied safely.
	if shouldMigrate {
		if err := db.AutoMigrate(&models.Role{}); err != nil {
			logrus.Warnf("migration warning (roles): %v", err)
		}
	}
	seedRoles()

	if shouldMigrate {
		// Migrate models individually so a failure on one doesn't block others
		if err := db.AutoMigrate(&models.User{}); err != nil {
			logrus.Warnf("migration warning (users): %v", err)
		}
		if err := db.AutoMigrate(&models.Detection{}); err != nil {
			logrus.Warnf("migration warning (detections): %v", err)
		}
		if err := db.AutoMigrate(&models.DetectionNumber{}); err != nil {
			logrus.Warnf("migration warning (detection_numbers): %v", err)
		}
		if err := db.AutoMigrate(&models.RefreshToken{}); err != nil {
			logrus.Warnf("migration warning (refresh_tokens): %v", err)
		}
	}

	// Ensure detections -> users FK exists (in case the table predates the
	// attribution column).
	if shouldMigrate {
		if err := ensureDetectionUserFK(); err != nil {
			logrus.Warnf("ensuring detections->users FK failed: %v", err)
		}
	}
	seedDB()
}

// ensureDetectionUserFK adds the user_id column and FK constraint if they are missing.
func ensureDetectionUserFK() error {
	// 1. Ensure user_id column exists
	if err := db.Exec(`ALTER TABLE detections ADD COLUMN IF NOT EXISTS user_id BIGINT`).Error; err != nil {
		return err
	}
	// 2. Create index (idempotent)
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_detections_user_id ON detections(user_id)`).Error; err != nil {
		return err
	}
	// 3. Check if FK already present
	type cnt struct{ N int }
	var c cnt
	fkCheckSQL := `SELECT count(*) AS n
		FROM pg_constraint ct
		JOIN pg_class rel ON rel.oid = ct.conrelid
		WHERE rel.relname = 'detections' AND ct.contype = 'f'
		  AND pg_get_constraintdef(ct.oid) ILIKE '%user_id%' AND pg_get_constraintdef(ct.oid) ILIKE '%users%'`
	if err := db.Raw(fkCheckSQL).Scan(&c).Error; err != nil {
		return err
	}
	if c.N == 0 {
		// 4. Add FK. Anonymous detections keep a NULL user_id, deleting a
		// user keeps their history as anonymous rows.
		if err := db.Exec(`ALTER TABLE detections
			ADD CONSTRAINT fk_detections_users
			FOREIGN KEY (user_id) REFERENCES users(id)
			ON UPDATE CASCADE ON DELETE SET NULL`).Error; err != nil {
			return err
		}
	}
	return nil
}

// seedRoles ensures the master roles exist.
func seedRoles() {
	roles := []models.Role{{Name: "administrator", Description: "full access"}, {Name: "user", Description: "regular user"}}
	for _, r := range roles {
		var cnt int64
		db.Model(&models.Role{}).Where("name = ?", r.Name).Count(&cnt)
		if cnt == 0 {
			db.Create(&r)
		}
	}
}

func seedDB() {
	seedRoles()

	// Check if admin user exists
	var count int64
	db.Model(&models.User{}).Where("username = ?", "admin").Count(&count)
	if count == 0 {
		// find administrator role id
		var role models.Role
		if err := db.Where("name = ?", "administrator").First(&role).Error; err != nil {
			logrus.Warnf("failed to find administrator role: %v", err)
		}
		// Seed admin user
		rid := role.ID
		admin := models.User{
			Username: "admin",
			RoleID:   &rid,
		}
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
		admin.HashedPassword = hashedPassword
		db.Create(&admin)
		logrus.Info("Seeded admin user: username=admin, password=admin123")
	}
	// Ensure upload directory exists
	ensureUploadBase()
}

// ensureUploadBase creates the base uploads directory.
func ensureUploadBase() {
	base := uploadBaseDir()
	if err := os.MkdirAll(base, 0755); err != nil {
		logrus.Warnf("failed to create upload base dir %s: %v", base, err)
	}
}

// uploadBaseDir returns the base directory for stored uploads (configurable via UPLOAD_BASE env)
func uploadBaseDir() string {
	if v := os.Getenv("UPLOAD_BASE"); v != "" {
		return v
	}
	return "uploads"
}
