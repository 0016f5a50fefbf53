// Package publish implements the Publisher capability (§6.2): each
// channel adapter offers a stable name and a publish operation that
// truncates to its configured character limit before sending.
package publish

import (
	"context"

	"github.com/npawatch/npawatch/internal/model"
)

// Publisher is one outbound publication channel.
type Publisher interface {
	// Name is the stable channel tag, matching a model.Channel value.
	Name() model.Channel

	// Publish sends text (already the channel's rendered post) to the
	// channel, truncating to the channel's configured max_chars first.
	Publish(ctx context.Context, title, url, text string) error
}
