package config

import (
	"fmt"
	"time"

	"checkin-dashboard/models"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func dialector(cfg DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverMySQL:
		return mysql.Open(cfg.DSN), nil
	case DriverPostgres:
		return postgres.Open(cfg.DSN), nil
	}
	return nil, fmt.Errorf("no sql dialector for driver %q", cfg.Driver)
}

// ConnectDatabase opens the checkin collection's database, migrates it and
// stores the handle in DB.
func ConnectDatabase(cfg DatabaseConfig, log *zap.Logger) error {
	dial, err := dialector(cfg)
	if err != nil {
		return err
	}

	gormLogger := logger.New(
		zap.NewStdLog(log.Named("gorm")),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dial, &gorm.Config{Logger: gormLogger})
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	} else {
		log.Info("cannot get raw sql.DB", zap.Error(err))
	}

	if err := db.AutoMigrate(&models.CheckIn{}); err != nil {
		return fmt.Errorf("migrate checkins: %w", err)
	}

	DB = db
	log.Info("database ready", zap.String("driver", cfg.Driver), zap.String("database", cfg.Name))
	return nil
}
