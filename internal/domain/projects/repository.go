package projects

import (
	"context"
	"errors"
	"time"

	"github.com/comilla/site-backend/internal/domain/attachments"
)

var (
	ErrNotFound    = errors.New("project not found")
	ErrConflict    = errors.New("project already exists")
	ErrMissingName = errors.New("project name is required")
)

type Project struct {
	ID          string
	Name        string
	Description string
	Location    string
	Images      attachments.Slots
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Input holds the scalar fields supplied on create and update.
type Input struct {
	Name        string
	Description string
	Location    string
}

// Repository is the record store for projects. GetByID, Update and Delete
// return ErrNotFound when the id does not resolve.
type Repository interface {
	List(ctx context.Context) ([]Project, error)
	GetByID(ctx context.Context, id string) (*Project, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, project Project) (*Project, error)
	Update(ctx context.Context, project Project) (*Project, error)
	Delete(ctx context.Context, id string) error
}
