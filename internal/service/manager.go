package service

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"peoplecounter/internal/dto"
	"peoplecounter/internal/logger"
	"peoplecounter/internal/model"
	"peoplecounter/internal/repository"
	"peoplecounter/internal/service/annotate"
	"peoplecounter/internal/service/detection"
	"peoplecounter/internal/service/imageio"
	"peoplecounter/internal/service/storage"
	"peoplecounter/internal/service/websocket"
)

const (
	DefaultHistoryLimit = 24
	MaxHistoryLimit     = 100
)

var (
	// ErrInvalidFileType is returned for uploads whose name has no accepted image extension.
	ErrInvalidFileType = errors.New("invalid file type")
	// ErrUploadNotFound is returned when an upload is missing or belongs to someone else.
	ErrUploadNotFound = errors.New("upload not found")
)

// Manager ties an upload to detection, annotation, storage and the live feed.
type Manager struct {
	pipeline      *detection.Pipeline
	store         *storage.UploadStore
	uploadRepo    repository.UploadRepository
	detectionRepo repository.DetectionRepository
	hubService    *websocket.HubService
	logger        *logger.Logger
}

func NewManager(pipeline *detection.Pipeline, store *storage.UploadStore, uploadRepo repository.UploadRepository,
	detectionRepo repository.DetectionRepository, hubService *websocket.HubService, logger *logger.Logger) *Manager {
	return &Manager{
		pipeline:      pipeline,
		store:         store,
		uploadRepo:    uploadRepo,
		detectionRepo: detectionRepo,
		hubService:    hubService,
		logger:        logger,
	}
}

// ProcessUpload counts the people in one uploaded image, stores the original
// and the annotated copy, records the result for userID and notifies their feed.
// Undecodable input surfaces as *detection.InputError.
func (m *Manager) ProcessUpload(userID int64, username, clientName string, data []byte) (*dto.UploadResult, error) {
	if !storage.AllowedFile(clientName) {
		return nil, ErrInvalidFileType
	}
	storedName, err := m.store.Reserve(clientName)
	if errors.Is(err, storage.ErrInvalidName) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFileType, err)
	}
	if err != nil {
		return nil, err
	}
	// files left here are removed unless the upload gets recorded
	cleanup := []string{storedName}
	defer func() {
		if len(cleanup) > 0 {
			m.removeFiles(cleanup...)
		}
	}()

	img, format, err := imageio.Decode(data)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := m.pipeline.Run(img)
	if err != nil {
		return nil, err
	}
	m.logger.Info("Detected %d people in %s in %v", result.Count, storedName, time.Since(start))

	var annotated bytes.Buffer
	if err := imageio.Encode(&annotated, annotate.Draw(img, result.Detections), format); err != nil {
		return nil, fmt.Errorf("failed to encode annotated image: %w", err)
	}

	if _, err := m.store.Save(storedName, data); err != nil {
		return nil, err
	}
	annotatedName := imageio.OutputName(storedName, format)
	cleanup = append(cleanup, annotatedName)
	if _, err := m.store.Save(annotatedName, annotated.Bytes()); err != nil {
		return nil, err
	}

	upload := &model.Upload{
		UserID:            userID,
		Filename:          storedName,
		AnnotatedFilename: annotatedName,
		PeopleCount:       result.Count,
		CreatedAt:         time.Now(),
	}
	uploadID, err := m.uploadRepo.Insert(upload)
	if err != nil {
		return nil, fmt.Errorf("failed to record upload: %w", err)
	}
	cleanup = nil

	rows := make([]model.Detection, 0, len(result.Detections))
	for _, d := range result.Detections {
		rows = append(rows, model.Detection{
			UploadID:   uploadID,
			X1:         d.Box.X1,
			Y1:         d.Box.Y1,
			X2:         d.Box.X2,
			Y2:         d.Box.Y2,
			Confidence: d.Confidence,
		})
	}
	if err := m.detectionRepo.InsertBatch(rows); err != nil {
		// the count is already recorded, boxes are best effort
		m.logger.Error("Failed to record detections for upload %d: %v", uploadID, err)
	}

	m.hubService.Publish(websocket.Event{
		UserID:            userID,
		Username:          username,
		AnnotatedFilename: annotatedName,
		PeopleCount:       result.Count,
		ProcessedAt:       time.Now(),
	})

	return &dto.UploadResult{
		UploadID:          uploadID,
		Filename:          storedName,
		AnnotatedFilename: annotatedName,
		PeopleCount:       result.Count,
		Detections:        result.Detections,
	}, nil
}

// History returns one page of userID's uploads, newest first.
func (m *Manager) History(userID int64, page, limit int) (*dto.HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultHistoryLimit
	}
	limit = min(limit, MaxHistoryLimit)

	total, err := m.uploadRepo.CountByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count uploads: %w", err)
	}
	uploads, err := m.uploadRepo.GetByUserID(userID, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}

	items := make([]dto.HistoryItem, 0, len(uploads))
	for _, u := range uploads {
		items = append(items, dto.HistoryItem{
			ID:                u.ID,
			Filename:          u.Filename,
			AnnotatedFilename: u.AnnotatedFilename,
			PeopleCount:       u.PeopleCount,
			CreatedAt:         u.CreatedAt,
		})
	}

	return &dto.HistoryPage{
		Items:       items,
		Length:      total,
		TotalPages:  (total + limit - 1) / limit,
		CurrentPage: page,
		Limit:       limit,
	}, nil
}

// Upload returns one of userID's uploads with its stored person boxes.
func (m *Manager) Upload(userID, uploadID int64) (*dto.UploadDetail, error) {
	upload, err := m.uploadRepo.GetByID(uploadID)
	if err != nil {
		return nil, fmt.Errorf("failed to load upload: %w", err)
	}
	if upload == nil || upload.UserID != userID {
		return nil, ErrUploadNotFound
	}

	detections, err := m.detectionRepo.GetByUploadID(uploadID)
	if err != nil {
		return nil, fmt.Errorf("failed to load detections: %w", err)
	}
	if detections == nil {
		detections = []model.Detection{}
	}

	return &dto.UploadDetail{
		Upload: dto.HistoryItem{
			ID:                upload.ID,
			Filename:          upload.Filename,
			AnnotatedFilename: upload.AnnotatedFilename,
			PeopleCount:       upload.PeopleCount,
			CreatedAt:         upload.CreatedAt,
		},
		Detections: detections,
	}, nil
}

// OwnsFile reports whether name is the original or annotated file of one of userID's uploads.
func (m *Manager) OwnsFile(userID int64, name string) (bool, error) {
	return m.uploadRepo.OwnsFile(userID, name)
}

func (m *Manager) GetWebsocketService() *websocket.HubService {
	return m.hubService
}

func (m *Manager) GetUploadStore() *storage.UploadStore {
	return m.store
}

func (m *Manager) removeFiles(names ...string) {
	for _, name := range names {
		if err := m.store.Remove(name); err != nil {
			m.logger.Warning("Failed to remove %s: %v", name, err)
		}
	}
}
