package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tadeyemo32/outreach-batcher/models"
)

var ErrProjectNotFound = errors.New("project not found")

// ProjectStore persists campaign projects.
type ProjectStore interface {
	GetProject(ctx context.Context, id string) (*models.Project, error)
	ListProjectIDs(ctx context.Context, userID string) ([]string, error)
	CreateProject(ctx context.Context, p *models.Project) error
}

// GormProjectStore keeps projects in a local SQLite file via gorm.
type GormProjectStore struct {
	DB *gorm.DB
}

// OpenGormProjectStore opens (creating if needed) the SQLite database at
// path and migrates the project schema.
func OpenGormProjectStore(path string) (*GormProjectStore, error) {
	if path == "" {
		path = filepath.Join("data", "batcher.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if err := db.AutoMigrate(&models.Project{}); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	log.Printf("[Store] SQLite project store ready at %s", path)
	return &GormProjectStore{DB: db}, nil
}

func (s *GormProjectStore) GetProject(ctx context.Context, id string) (*models.Project, error) {
	var p models.Project
	err := s.DB.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", id, err)
	}
	return &p, nil
}

func (s *GormProjectStore) ListProjectIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.DB.WithContext(ctx).Model(&models.Project{}).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list projects for %s: %w", userID, err)
	}
	return ids, nil
}

func (s *GormProjectStore) CreateProject(ctx context.Context, p *models.Project) error {
	p.ApplyDefaults()
	if err := s.DB.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}
