package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/facility-admin-api/internal/models"
	appErrors "github.com/noah-isme/facility-admin-api/pkg/errors"
)

type roomLister interface {
	List(ctx context.Context) ([]models.Room, error)
}

// RoomService exposes the fixed set of meeting rooms.
type RoomService struct {
	repo   roomLister
	logger *zap.Logger
}

func NewRoomService(repo roomLister, logger *zap.Logger) *RoomService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomService{repo: repo, logger: logger}
}

func (s *RoomService) List(ctx context.Context) ([]models.Room, error) {
	rooms, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	if rooms == nil {
		rooms = []models.Room{}
	}
	return rooms, nil
}
