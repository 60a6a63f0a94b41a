package events

import (
	"context"
	"errors"
	"time"

	"github.com/comilla/site-backend/internal/domain/attachments"
)

var (
	ErrNotFound    = errors.New("event not found")
	ErrConflict    = errors.New("event already exists")
	ErrMissingName = errors.New("event name is required")
)

// Event is a dated project. Date and Time are free-form display strings.
type Event struct {
	ID          string
	Name        string
	Description string
	Location    string
	Date        string
	Time        string
	Images      attachments.Slots
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Input struct {
	Name        string
	Description string
	Location    string
	Date        string
	Time        string
}

type Repository interface {
	List(ctx context.Context) ([]Event, error)
	GetByID(ctx context.Context, id string) (*Event, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, event Event) (*Event, error)
	Update(ctx context.Context, event Event) (*Event, error)
	Delete(ctx context.Context, id string) error
}
