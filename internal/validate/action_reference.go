package validate

import (
	"fmt"
	"strings"

	"github.com/sanix-darker/git-ci/pkg/types"
)

// ParseActionReference parses a step's `uses:` value into its typed form:
// `owner/repo[/path]@ref`, `./local/path`, or `docker://image[:tag]`.
func ParseActionReference(uses string) (types.ActionReference, error) {
	switch {
	case strings.HasPrefix(uses, "./") || strings.HasPrefix(uses, "../"):
		return types.ActionReference{Kind: types.ActionLocalPath, LocalPath: uses}, nil

	case strings.HasPrefix(uses, "docker://"):
		ref := strings.TrimPrefix(uses, "docker://")
		if ref == "" {
			return types.ActionReference{}, fmt.Errorf("docker action reference is empty: %q", uses)
		}
		if idx := strings.LastIndex(ref, ":"); idx > strings.LastIndex(ref, "/") {
			return types.ActionReference{Kind: types.ActionDockerImage, Image: ref[:idx], Tag: ref[idx+1:]}, nil
		}
		return types.ActionReference{Kind: types.ActionDockerImage, Image: ref}, nil

	default:
		atIdx := strings.LastIndex(uses, "@")
		if atIdx <= 0 {
			return types.ActionReference{}, fmt.Errorf("action reference %q is missing a version (owner/repo@ref)", uses)
		}
		repoPart, ref := uses[:atIdx], uses[atIdx+1:]
		if ref == "" {
			return types.ActionReference{}, fmt.Errorf("action reference %q has an empty ref", uses)
		}

		segments := strings.SplitN(repoPart, "/", 3)
		if len(segments) < 2 || segments[0] == "" || segments[1] == "" {
			return types.ActionReference{}, fmt.Errorf("action reference %q is not owner/repo[/path]@ref", uses)
		}

		out := types.ActionReference{Kind: types.ActionRemoteRepo, Owner: segments[0], Repo: segments[1], Ref: ref}
		if len(segments) == 3 {
			out.Path = segments[2]
		}
		return out, nil
	}
}

// ValidateActionReference reports an error if uses does not parse into a
// recognized shape.
func ValidateActionReference(uses string) error {
	_, err := ParseActionReference(uses)
	return err
}
