package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"feather-planner/internal/domain"
	"feather-planner/internal/storage"
)

const defaultExportURLTTL = 15 * time.Minute

// ExportResult locates an uploaded calendar export.
type ExportResult struct {
	Key      string
	Location string
	URL      string
}

// ExportService writes whole-calendar exports to object storage.
type ExportService interface {
	Export(ctx context.Context, userID uint32) (*ExportResult, error)
	List(ctx context.Context, userID uint32) ([]storage.ObjectInfo, error)
	Delete(ctx context.Context, userID uint32) error
}

// ExportConfig selects where exports go. An empty Bucket disables exports.
type ExportConfig struct {
	Bucket    string
	KeyPrefix string
	URLTTL    time.Duration
	Logger    logrus.FieldLogger
}

type exportService struct {
	cfg       ExportConfig
	calendars CalendarService
	storage   storage.Service
	now       func() time.Time
	newKey    func() string
}

func NewExportService(cfg ExportConfig, calendars CalendarService, store storage.Service) ExportService {
	if cfg.URLTTL <= 0 {
		cfg.URLTTL = defaultExportURLTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	cfg.KeyPrefix = strings.Trim(cfg.KeyPrefix, "/")
	return &exportService{
		cfg:       cfg,
		calendars: calendars,
		storage:   store,
		now:       time.Now,
		newKey:    uuid.NewString,
	}
}

type exportDocument struct {
	UserID     uint32       `json:"u_id"`
	ExportedAt string       `json:"exported_at"`
	Dates      []exportDate `json:"dates"`
}

type exportDate struct {
	DateStr string       `json:"date_str"`
	Plans   []exportPlan `json:"plans"`
}

type exportPlan struct {
	PlanID  uint32 `json:"plan_id"`
	Content string `json:"content"`
}

func (s *exportService) enabled() bool {
	return s.storage != nil && s.cfg.Bucket != ""
}

func (s *exportService) userPrefix(userID uint32) string {
	if s.cfg.KeyPrefix == "" {
		return fmt.Sprintf("%d/", userID)
	}
	return fmt.Sprintf("%s/%d/", s.cfg.KeyPrefix, userID)
}

func (s *exportService) Export(ctx context.Context, userID uint32) (*ExportResult, error) {
	if !s.enabled() {
		return nil, domain.ErrExportDisabled
	}

	days, err := s.calendars.AllDates(ctx, userID)
	if err != nil {
		return nil, err
	}

	doc := exportDocument{
		UserID:     userID,
		ExportedAt: s.now().UTC().Format(time.RFC3339),
		Dates:      make([]exportDate, 0, len(days)),
	}
	for _, day := range days {
		entry := exportDate{DateStr: day.Date, Plans: make([]exportPlan, 0, len(day.Plans))}
		for _, plan := range day.Plans {
			entry.Plans = append(entry.Plans, exportPlan{PlanID: plan.ID, Content: plan.Content})
		}
		doc.Dates = append(doc.Dates, entry)
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}

	key := s.userPrefix(userID) + s.newKey() + ".json"
	location, err := s.storage.Upload(ctx, bytes.NewReader(body), storage.UploadOptions{
		Bucket:      s.cfg.Bucket,
		Key:         key,
		ContentType: "application/json",
	})
	if err != nil {
		return nil, err
	}

	url, err := s.storage.GetObjectURL(ctx, s.cfg.Bucket, key, s.cfg.URLTTL)
	if err != nil {
		return nil, err
	}

	s.cfg.Logger.WithFields(logrus.Fields{"user_id": userID, "key": key, "dates": len(doc.Dates)}).Info("calendar exported")
	return &ExportResult{Key: key, Location: location, URL: url}, nil
}

func (s *exportService) List(ctx context.Context, userID uint32) ([]storage.ObjectInfo, error) {
	if !s.enabled() {
		return nil, domain.ErrExportDisabled
	}
	return s.storage.ListObjects(ctx, s.cfg.Bucket, s.userPrefix(userID))
}

func (s *exportService) Delete(ctx context.Context, userID uint32) error {
	if !s.enabled() {
		return domain.ErrExportDisabled
	}
	return s.storage.DeletePrefix(ctx, s.cfg.Bucket, s.userPrefix(userID))
}
