package service

import (
	"context"

	"github.com/cinequery/cinequery/internal/domain"
	"github.com/cinequery/cinequery/internal/repository"
)

// AdminService exposes operational statistics.
type AdminService struct {
	sessions *repository.SessionRepository
	films    *repository.FilmRepository
}

// NewAdminService creates a new admin service.
func NewAdminService(sessions *repository.SessionRepository, films *repository.FilmRepository) *AdminService {
	return &AdminService{sessions: sessions, films: films}
}

// Stats returns system statistics.
func (s *AdminService) Stats(ctx context.Context) (*domain.Stats, error) {
	totalSessions, err := s.sessions.CountSessions()
	if err != nil {
		return nil, err
	}
	totalChats, err := s.sessions.CountChats()
	if err != nil {
		return nil, err
	}
	totalFilms, err := s.films.Count()
	if err != nil {
		return nil, err
	}

	return &domain.Stats{
		TotalSessions: totalSessions,
		TotalChats:    totalChats,
		TotalFilms:    totalFilms,
	}, nil
}
