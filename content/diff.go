package content

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aymanbagabas/go-udiff"
)

// RenderDiff resolves the virtual document at left and returns a unified
// diff from it to modified. Equal texts give an empty diff.
func RenderDiff(ctx context.Context, reg *Registry, left *url.URL, modified string) (string, error) {
	original, err := reg.Provide(ctx, left)
	if err != nil {
		return "", err
	}
	label := left.Path
	if left.Opaque != "" {
		label = left.Opaque
		if name, err := url.PathUnescape(left.Opaque); err == nil {
			label = name
		}
	}
	return Compare(label, original, modified)
}

// Compare returns the unified diff between two texts.
func Compare(label, original, modified string) (string, error) {
	edits := udiff.Lines(original, modified)
	out, err := udiff.ToUnified("a/"+label, "b/"+label, original, edits, udiff.DefaultContextLines)
	if err != nil {
		return "", fmt.Errorf("diff %s: %w", label, err)
	}
	return out, nil
}
