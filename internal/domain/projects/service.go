package projects

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

func (s *Service) List(ctx context.Context) ([]Project, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Project, error) {
	id, err := ids.Normalize(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// Create rejects a name that is already in use, uploads the images and
// stores the project. Uploaded images are removed again if the insert fails.
func (s *Service) Create(ctx context.Context, input Input, uploads map[int]attachments.Upload) (*Project, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, ErrMissingName
	}

	exists, err := s.repo.ExistsByName(ctx, input.Name)
	if err != nil {
		return nil, fmt.Errorf("check project name: %w", err)
	}
	if exists {
		return nil, ErrConflict
	}

	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate project id: %w", err)
	}

	staged, err := s.images.Stage(ctx, attachments.Slots{}, uploads)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, Project{
		ID:          id,
		Name:        input.Name,
		Description: input.Description,
		Location:    input.Location,
		Images:      staged.Slots,
	})
	if err != nil {
		s.images.Abort(ctx, staged)
		return nil, fmt.Errorf("create project: %w", err)
	}

	zerolog.Ctx(ctx).Info().Str("project_id", created.ID).Int("images", created.Images.Count()).Msg("project created")
	return created, nil
}

// Update replaces every scalar field with input and merges uploads into the
// image slots. Replaced images are deleted only after the record is saved.
func (s *Service) Update(ctx context.Context, id string, input Input, uploads map[int]attachments.Upload) (*Project, error) {
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
	next.Images = staged.Slots

	updated, err := s.repo.Update(ctx, next)
	if err != nil {
		s.images.Abort(ctx, staged)
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update project: %w", err)
	}
	s.images.Commit(ctx, staged)

	zerolog.Ctx(ctx).Info().Str("project_id", updated.ID).Int("replaced_images", len(staged.Replaced())).Msg("project updated")
	return updated, nil
}

// Delete removes the record and then its images. Image delete failures are
// logged and left to the orphan sweep.
func (s *Service) Delete(ctx context.Context, id string) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, current.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete project: %w", err)
	}

	logger := zerolog.Ctx(ctx)
	if err := s.images.DeleteAll(ctx, current.Images); err != nil {
		logger.Warn().Err(err).Str("project_id", current.ID).Msg("project images not fully deleted")
	}
	logger.Info().Str("project_id", current.ID).Msg("project deleted")
	return nil
}
