// Package runtime defines the uniform contract every execution backend
// (Docker, Podman, direct/sandboxed emulation) implements, plus the
// tracked-resource registry and image cache shared across them.
package runtime

import (
	"context"
	"sync"

	"github.com/sanix-darker/git-ci/pkg/types"
)

// Backend names a concrete Runtime implementation.
type Backend string

const (
	BackendDocker    Backend = "docker"
	BackendPodman    Backend = "podman"
	BackendEmulation Backend = "emulation"
)

// StepRequest carries everything a Runtime needs to run one step.
type StepRequest struct {
	Job        *types.Job
	Step       *types.Step
	Image      string
	Env        map[string]string
	WorkingDir string
}

// Runtime is the contract an execution backend implements. Every method is
// safe to call concurrently for distinct requests.
type Runtime interface {
	// RunStep executes a single step and returns its captured output.
	RunStep(ctx context.Context, req StepRequest) (types.ContainerOutput, error)

	// PullImage ensures imageName is available locally, pulling it if the
	// backend supports that and it is missing.
	PullImage(ctx context.Context, imageName string) error

	// BuildImage builds imageName from a Dockerfile-style context directory,
	// for backends that support custom image builds.
	BuildImage(ctx context.Context, contextDir, imageName string) error

	// PrepareLanguageEnvironment resolves (and pulls/builds if needed) the
	// canonical image for a language/version pair, returning its image
	// reference.
	PrepareLanguageEnvironment(ctx context.Context, lang, version string) (string, error)

	// Cleanup releases every resource this Runtime instance has tracked
	// (containers, networks, temp dirs).
	Cleanup(ctx context.Context) error

	// Backend identifies which concrete implementation this is.
	Backend() Backend
}

// TrackedResources is a mutex-guarded registry of resource identifiers
// (container IDs, network IDs, workspace paths) a Runtime has created, so
// Cleanup can release them even after a failure mid-job. Spec invariant:
// after Cleanup returns nil, the registry is empty.
type TrackedResources struct {
	mu        sync.Mutex
	resources map[string][]string // kind -> ids
}

// NewTrackedResources returns an empty registry.
func NewTrackedResources() *TrackedResources {
	return &TrackedResources{resources: make(map[string][]string)}
}

// Track records an id of the given kind (e.g. "container", "network").
func (t *TrackedResources) Track(kind, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resources[kind] = append(t.resources[kind], id)
}

// Untrack removes a single id from a kind's list, once it has been
// released.
func (t *TrackedResources) Untrack(kind, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := t.resources[kind]
	for i, existing := range ids {
		if existing == id {
			t.resources[kind] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}

// Snapshot returns a copy of every tracked id, by kind.
func (t *TrackedResources) Snapshot() map[string][]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string][]string, len(t.resources))
	for k, v := range t.resources {
		cp := make([]string, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

// Empty reports whether nothing remains tracked.
func (t *TrackedResources) Empty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ids := range t.resources {
		if len(ids) > 0 {
			return false
		}
	}
	return true
}

// Clear drops every tracked id without releasing anything; callers use
// this once they've confirmed external release succeeded.
func (t *TrackedResources) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resources = make(map[string][]string)
}

// ImageCache maps canonical "{lang}:{version}" keys to resolved image
// references, avoiding repeated pulls/builds for the same language
// environment within one run.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]string
}

// NewImageCache returns an empty cache.
func NewImageCache() *ImageCache {
	return &ImageCache{images: make(map[string]string)}
}

// Key builds the canonical cache key for a language/version pair.
func Key(lang, version string) string {
	return lang + ":" + version
}

// Get returns the cached image reference for a language/version pair.
func (c *ImageCache) Get(lang, version string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	img, ok := c.images[Key(lang, version)]
	return img, ok
}

// Set records the resolved image reference for a language/version pair.
func (c *ImageCache) Set(lang, version, image string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images[Key(lang, version)] = image
}
