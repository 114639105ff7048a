package video

import "context"

// Store describes persistence operations for video records and their
// annotation geometry.
type Store interface {
	Create(ctx context.Context, v *Video) error
	Find(ctx context.Context, id int64) (*Video, error)
	// List returns all videos, newest first.
	List(ctx context.Context) ([]*Video, error)
	// Delete removes the record and returns the stored file path so the
	// caller can release the media object.
	Delete(ctx context.Context, id int64) (filePath string, err error)
}
