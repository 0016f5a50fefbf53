package publish

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/npawatch/npawatch/internal/model"
)

// ConsolePublisher writes posts to an io.Writer (typically os.Stdout)
// exactly as given; no separator is added between posts. Safe for
// concurrent use; writes are serialized with a
// mutex so two publishes never interleave, mirroring the teacher's
// JSONLWriter discipline.
type ConsolePublisher struct {
	w        io.Writer
	maxChars int
	mu       sync.Mutex
}

// NewConsolePublisher returns a Publisher writing to w, truncating
// posts to maxChars (0 = no limit).
func NewConsolePublisher(w io.Writer, maxChars int) *ConsolePublisher {
	return &ConsolePublisher{w: w, maxChars: maxChars}
}

func (c *ConsolePublisher) Name() model.Channel { return model.ChannelConsole }

func (c *ConsolePublisher) Publish(_ context.Context, _, _, text string) error {
	out := text
	if c.maxChars > 0 {
		out = TrimWithEllipsis(text, c.maxChars)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprint(c.w, out)
	return err
}
