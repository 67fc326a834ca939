package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackedResourcesTrackUntrack(t *testing.T) {
	tr := NewTrackedResources()
	assert.True(t, tr.Empty())

	tr.Track("container", "c1")
	tr.Track("container", "c2")
	assert.False(t, tr.Empty())

	tr.Untrack("container", "c1")
	snapshot := tr.Snapshot()
	assert.Equal(t, []string{"c2"}, snapshot["container"])

	tr.Untrack("container", "c2")
	assert.True(t, tr.Empty())
}

func TestImageCacheKeyFormat(t *testing.T) {
	assert.Equal(t, "python:3.12", Key("python", "3.12"))

	cache := NewImageCache()
	_, ok := cache.Get("python", "3.12")
	assert.False(t, ok)

	cache.Set("python", "3.12", "python:3.12-slim")
	img, ok := cache.Get("python", "3.12")
	assert.True(t, ok)
	assert.Equal(t, "python:3.12-slim", img)
}

func TestResolveLanguageImageFallback(t *testing.T) {
	assert.Equal(t, "node:20", ResolveLanguageImage("node", "20"))
	assert.Equal(t, "rust:1.75", ResolveLanguageImage("rust", "1.75"))
}
