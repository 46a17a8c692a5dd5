package client

import (
	"context"

	"github.com/benvon/smart-notes/internal/models"
)

// TagsResource serves the caller's tags from the client cache. Writes
// through any service that can change tags invalidate it, as do change
// events fed to Client.HandleEvent.
type TagsResource struct {
	c *Client
}

// TagsResource returns the cache-backed tag list.
func (c *Client) TagsResource() *TagsResource {
	return &TagsResource{c: c}
}

// Tags returns the cached tags, fetching them when missing or stale.
func (r *TagsResource) Tags(ctx context.Context) ([]models.Tag, error) {
	return Fetch(ctx, r.c.cache, tagsPath, nil, r.c.Tags.List)
}

// Revalidate refetches the tags and replaces the cached copy.
func (r *TagsResource) Revalidate(ctx context.Context) ([]models.Tag, error) {
	return Refresh(ctx, r.c.cache, tagsPath, nil, r.c.Tags.List)
}
