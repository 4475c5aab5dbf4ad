package og

import (
	"context"
	"fmt"
)

// Enumerate lists src and returns one task per post, in source order.
// The only error it produces is the source's own, wrapped in ErrUpstreamData.
func Enumerate(ctx context.Context, src PostSource) ([]Task, error) {
	posts, err := src.Posts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamData, err)
	}
	return TasksFor(posts), nil
}

// TasksFor pairs every post with its route slug. Slugs are taken as given;
// uniqueness is the source's guarantee.
func TasksFor(posts []PostRecord) []Task {
	tasks := make([]Task, 0, len(posts))
	for _, p := range posts {
		tasks = append(tasks, Task{Slug: p.Slug, Post: p})
	}
	return tasks
}
