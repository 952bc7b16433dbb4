package tempstore

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dmitrymomot/restform/pkg/logger"
)

// Registry records the files stored during one parse so they can be
// removed together once the caller is done with them.
// A Registry belongs to a single parse and is not safe for concurrent use.
type Registry struct {
	store *Store
	paths []string
}

// Save stores content through the registry's Store and records the path
// on success. See Store.Save for the meaning of size.
func (r *Registry) Save(ctx context.Context, content []byte, size int64) Outcome {
	out := r.store.Save(ctx, content, size)
	if out.Code == CodeOK {
		r.paths = append(r.paths, out.Path)
	}
	return out
}

// Paths returns the recorded paths in storage order.
func (r *Registry) Paths() []string {
	return slices.Clone(r.paths)
}

// Len returns the number of recorded paths.
func (r *Registry) Len() int {
	return len(r.paths)
}

// Keep detaches path from the registry so Release leaves it in place.
// Use it after taking ownership of a file, e.g. moving it elsewhere.
// It reports whether path was recorded.
func (r *Registry) Keep(path string) bool {
	i := slices.Index(r.paths, path)
	if i < 0 {
		return false
	}
	r.paths = slices.Delete(r.paths, i, i+1)
	return true
}

// Remove deletes one recorded file and forgets it. Paths the registry did
// not record are left alone and reported as ErrInvalidPath.
func (r *Registry) Remove(ctx context.Context, path string) error {
	i := slices.Index(r.paths, path)
	if i < 0 {
		return fmt.Errorf("%w: %s is not recorded", ErrInvalidPath, path)
	}
	if err := r.store.Remove(context.WithoutCancel(ctx), path); err != nil {
		return err
	}
	r.paths = slices.Delete(r.paths, i, i+1)
	return nil
}

// Release removes every recorded file. Removal runs even when ctx is
// already done, so a deferred Release on a finished request still cleans
// up. Paths that fail to remove stay recorded and a later Release retries
// them; the failures are logged at debug level.
func (r *Registry) Release(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	var (
		kept []string
		errs []error
	)
	for _, p := range r.paths {
		if err := r.store.Remove(ctx, p); err != nil {
			kept = append(kept, p)
			errs = append(errs, err)
		}
	}
	r.paths = kept

	if len(errs) > 0 {
		r.store.logger.DebugContext(ctx, "failed to remove temporary files",
			slog.Any("paths", kept),
			logger.Errors(errs...),
		)
	}
}
