package events

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/comilla/site-backend/internal/domain/attachments"
	"github.com/comilla/site-backend/internal/domain/ids"
)

type Service struct {
	repo   Repository
	images *attachments.Manager
}

func NewService(repo Repository, images *attachments.Manager) *Service {
	return &Service{repo: repo, images: images}
}

func (s *Service) List(ctx context.Context) ([]Event, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Event, error) {
	id, err := ids.Normalize(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, input Input, uploads map[int]attachments.Upload) (*Event, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, ErrMissingName
	}

	exists, err := s.repo.ExistsByName(ctx, input.Name)
	if err != nil {
		return nil, fmt.Errorf("check event name: %w", err)
	}
	if exists {
		return nil, ErrConflict
	}

	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate event id: %w", err)
	}

	staged, err := s.images.Stage(ctx, attachments.Slots{}, uploads)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, Event{
		ID:          id,
		Name:        input.Name,
		Description: input.Description,
		Location:    input.Location,
		Date:        input.Date,
		Time:        input.Time,
		Images:      staged.Slots,
	})
	if err != nil {
		s.images.Abort(ctx, staged)
		return nil, fmt.Errorf("create event: %w", err)
	}

	zerolog.Ctx(ctx).Info().Str("event_id", created.ID).Int("images", created.Images.Count()).Msg("event created")
	return created, nil
}

// Update replaces all scalar fields, including date and time, and merges
// uploads slot-wise.
func (s *Service) Update(ctx context.Context, id string, input Input, uploads map[int]attachments.Upload) (*Event, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	staged, err := s.images.Stage(ctx, current.Images, uploads)
	if err != nil {
		return nil, err
	}

	next := *current
	next.Name = strings.TrimSpace(input.Name)
	next.Description = input.Description
	next.Location = input.Location
	next.Date = input.Date
	next.Time = input.Time
	next.Images = staged.Slots

	updated, err := s.repo.Update(ctx, next)
	if err != nil {
		s.images.Abort(ctx, staged)
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	s.images.Commit(ctx, staged)

	zerolog.Ctx(ctx).Info().Str("event_id", updated.ID).Int("replaced_images", len(staged.Replaced())).Msg("event updated")
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, current.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete event: %w", err)
	}

	logger := zerolog.Ctx(ctx)
	if err := s.images.DeleteAll(ctx, current.Images); err != nil {
		logger.Warn().Err(err).Str("event_id", current.ID).Msg("event images not fully deleted")
	}
	logger.Info().Str("event_id", current.ID).Msg("event deleted")
	return nil
}
