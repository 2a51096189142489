package partners

import (
	"context"
	"fmt"

	"github.com/Wewst/coffe-pass/internal/domain/model"
)

type Directory interface {
	ListActive(ctx context.Context) ([]model.Partner, error)
}

type Service struct {
	directory Directory
}

func NewService(directory Directory) *Service {
	return &Service{directory: directory}
}

// ListActive returns the partner cafes currently accepting codes, in the
// directory's name order.
func (s *Service) ListActive(ctx context.Context) ([]model.Partner, error) {
	if s.directory == nil {
		return nil, fmt.Errorf("partner directory is not configured")
	}
	return s.directory.ListActive(ctx)
}
