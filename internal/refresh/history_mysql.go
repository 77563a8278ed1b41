package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/evyataryagoni/geolookup/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// RefreshRunModel is the GORM model for the refresh_runs table
type RefreshRunModel struct {
	ID         uint      `gorm:"column:id;primaryKey;autoIncrement"`
	StartedAt  time.Time `gorm:"column:started_at;index"`
	FinishedAt time.Time `gorm:"column:finished_at"`
	Outcome    string    `gorm:"column:outcome;size:16"`
	ExitCode   int       `gorm:"column:exit_code"`
	Error      string    `gorm:"column:error;type:text"`
	Reloaded   bool      `gorm:"column:reloaded"`
	BuildEpoch uint      `gorm:"column:build_epoch"`
}

// TableName overrides GORM's default "refresh_run_models"
func (RefreshRunModel) TableName() string {
	return "refresh_runs"
}

// MySQLHistory implements History using MySQL with GORM
type MySQLHistory struct {
	db *gorm.DB
}

// NewMySQLHistory connects to dsn and migrates the refresh_runs table
//
// Parameters:
//   - dsn: Data Source Name (connection string)
//     Format: user:password@tcp(host:port)/dbname?parseTime=true
func NewMySQLHistory(dsn string) (*MySQLHistory, error) {
	config := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}

	db, err := gorm.Open(mysql.Open(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL with GORM: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// One writer per day; a small pool is plenty
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping MySQL database: %w", err)
	}

	if err := db.AutoMigrate(&RefreshRunModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate refresh_runs: %w", err)
	}

	return &MySQLHistory{db: db}, nil
}

// Record inserts run into refresh_runs
func (h *MySQLHistory) Record(ctx context.Context, run models.RefreshRun) error {
	row := RefreshRunModel{
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Outcome:    string(run.Outcome),
		ExitCode:   run.ExitCode,
		Error:      run.Error,
		Reloaded:   run.Reloaded,
		BuildEpoch: run.BuildEpoch,
	}

	if err := h.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert refresh run: %w", err)
	}
	return nil
}

// Last returns the most recently inserted run
func (h *MySQLHistory) Last(ctx context.Context) (*models.RefreshRun, error) {
	var row RefreshRunModel

	// SELECT * FROM refresh_runs ORDER BY id DESC LIMIT 1
	result := h.db.WithContext(ctx).Last(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNoRuns
		}
		return nil, fmt.Errorf("database query failed: %w", result.Error)
	}

	return &models.RefreshRun{
		StartedAt:  row.StartedAt,
		FinishedAt: row.FinishedAt,
		Outcome:    models.RefreshOutcome(row.Outcome),
		ExitCode:   row.ExitCode,
		Error:      row.Error,
		Reloaded:   row.Reloaded,
		BuildEpoch: row.BuildEpoch,
	}, nil
}

// Close closes the database connection
func (h *MySQLHistory) Close() error {
	if h.db != nil {
		sqlDB, err := h.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
