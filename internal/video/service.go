package video

import (
	"context"
	"fmt"
	"io"
)

// MediaStore stores uploaded recordings and releases them again on delete.
type MediaStore interface {
	Save(ctx context.Context, name string, r io.Reader) (path string, err error)
	Remove(path string) error
}

// CreateInput carries the annotated metadata of an upload.
type CreateInput struct {
	Title       string
	Description string
	UserID      int64
	Lines       []Line
	Masks       []Mask
}

// Service coordinates video records and their media objects.
type Service struct {
	store Store
	media MediaStore
}

func NewService(store Store, media MediaStore) *Service {
	return &Service{store: store, media: media}
}

// Create validates the annotation payload, stores the media object and then
// the record. A failed record insert releases the stored file again.
func (s *Service) Create(ctx context.Context, in CreateInput, file io.Reader, filename string) (*Video, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.Lines == nil {
		return nil, fmt.Errorf("%w: lines are required", ErrInvalidInput)
	}
	if in.Masks == nil {
		return nil, fmt.Errorf("%w: masks are required", ErrInvalidInput)
	}
	if file == nil {
		return nil, fmt.Errorf("%w: video file is required", ErrInvalidInput)
	}

	lines := make([]Line, len(in.Lines))
	copy(lines, in.Lines)
	for i := range lines {
		if lines[i].Type == "" {
			lines[i].Type = DefaultLineType
		}
	}
	masks := make([]Mask, len(in.Masks))
	copy(masks, in.Masks)

	path, err := s.media.Save(ctx, filename, file)
	if err != nil {
		return nil, err
	}

	v := &Video{
		Title:       in.Title,
		Description: in.Description,
		FilePath:    path,
		UserID:      in.UserID,
		Lines:       lines,
		Masks:       masks,
	}
	if err := s.store.Create(ctx, v); err != nil {
		_ = s.media.Remove(path)
		return nil, err
	}
	return v, nil
}

// Get returns a video with its geometry.
func (s *Service) Get(ctx context.Context, id int64) (*Video, error) {
	return s.store.Find(ctx, id)
}

// List returns all videos, newest first.
func (s *Service) List(ctx context.Context) ([]*Video, error) {
	return s.store.List(ctx)
}

// Delete removes the record and releases the media object. A missing media
// file is not an error; the record removal is what matters.
func (s *Service) Delete(ctx context.Context, id int64) error {
	filePath, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	_ = s.media.Remove(filePath)
	return nil
}
