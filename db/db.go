package db

import (
	"fmt"
	"time"

	"github.com/techagentng/findmenow/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type GormDB struct {
	DB *gorm.DB
}

// GetDB connects to Postgres and runs migrations.
func GetDB(c *config.Config) (*GormDB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresPort)
	return Open(dsn, c.Env != "prod")
}

// Open connects with a raw DSN. verbose enables gorm's SQL log.
func Open(dsn string, verbose bool) (*GormDB, error) {
	gormConfig := &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
	if verbose {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	} else {
		gormConfig.Logger = logger.Default.LogMode(logger.Warn)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		DSN: dsn,
	}), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	g := &GormDB{DB: gormDB}
	if err := migrate(g.DB); err != nil {
		return nil, fmt.Errorf("unable to run migrations: %w", err)
	}
	return g, nil
}

func (g *GormDB) Close() error {
	sqlDB, err := g.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&reportRow{},
		&likeRow{},
		&commentRow{},
	)
	if err != nil {
		return fmt.Errorf("migrations error: %v", err)
	}
	return nil
}
