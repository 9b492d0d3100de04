package clipboard

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"
)

// System writes transcripts to the OS clipboard.
type System struct{}

func NewSystem() *System {
	return &System{}
}

func (s *System) SetText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if clipboard.Unsupported {
		return fmt.Errorf("no clipboard utility available on this system")
	}
	return clipboard.WriteAll(text)
}
