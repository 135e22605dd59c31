package blob

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"pdtcore/internal/blob/core"
	"pdtcore/pkg/domain"
)

// uploadTimeFormat prefixes stored keys so repeated uploads of the same file
// name never collide.
const uploadTimeFormat = "20060102_150405"

// Uploader persists validated files into a blob store under
// collision-resistant names. No business logic lives here.
type Uploader struct {
	store core.Store
	now   func() time.Time
}

// NewUploader wraps a store. The clock is overridable for tests.
func NewUploader(store core.Store) *Uploader {
	return &Uploader{store: store, now: time.Now}
}

// WithClock overrides the key-prefix clock. Returns the uploader for chaining.
func (u *Uploader) WithClock(now func() time.Time) *Uploader {
	u.now = now
	return u
}

// Upload stores each file under "<timestamp>_<name>" and returns the stored
// keys in input order. The first failure aborts the batch.
func (u *Uploader) Upload(ctx context.Context, files []domain.ValidatedFile) ([]string, error) {
	keys := make([]string, 0, len(files))
	for _, file := range files {
		key := fmt.Sprintf("%s_%s", u.now().UTC().Format(uploadTimeFormat), file.Name)
		opts := core.PutOptions{
			ContentType: "text/csv",
			Metadata:    map[string]string{"session_id": file.SessionID},
		}
		if _, err := u.store.Put(ctx, key, bytes.NewReader(file.Content), opts); err != nil {
			return keys, fmt.Errorf("upload %s: %w", file.Name, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}
