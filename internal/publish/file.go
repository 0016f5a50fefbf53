package publish

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/npawatch/npawatch/internal/model"
)

// FilePublisher appends (or overwrites) rendered posts to a single
// file on disk. Safe for concurrent use: writes are serialized with a
// mutex.
type FilePublisher struct {
	path     string
	append   bool
	maxChars int

	mu sync.Mutex
}

// NewFilePublisher returns a Publisher writing to path. When append is
// true, each publish appends to the existing file; otherwise each
// publish overwrites it (matching a "latest post" output file).
func NewFilePublisher(path string, append bool, maxChars int) *FilePublisher {
	return &FilePublisher{path: path, append: append, maxChars: maxChars}
}

func (f *FilePublisher) Name() model.Channel { return model.ChannelFile }

func (f *FilePublisher) Publish(_ context.Context, _, _, text string) error {
	out := text
	if f.maxChars > 0 {
		out = TrimWithEllipsis(text, f.maxChars)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	flags := os.O_CREATE | os.O_WRONLY
	if f.append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	fh, err := os.OpenFile(f.path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open output file %s: %w", f.path, err)
	}
	defer fh.Close()

	if _, err := fh.WriteString(out); err != nil {
		return fmt.Errorf("failed to write output file %s: %w", f.path, err)
	}
	return nil
}
