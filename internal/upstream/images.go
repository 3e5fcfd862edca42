package upstream

import "strings"

// ImageResolver turns the image paths the upstream returns into absolute URLs
// under the configured base origin.
type ImageResolver struct {
	baseURL string
}

func NewImageResolver(baseURL string) ImageResolver {
	return ImageResolver{baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/")}
}

// Resolve returns nil for a nil or empty path. Absolute URLs pass through,
// rooted paths are appended to the origin and bare file names land under /images/.
func (r ImageResolver) Resolve(path *string) *string {
	if path == nil || *path == "" {
		return nil
	}
	p := *path
	var resolved string
	switch {
	case strings.HasPrefix(p, "http"):
		resolved = p
	case strings.HasPrefix(p, "/"):
		resolved = r.baseURL + p
	default:
		resolved = r.baseURL + "/images/" + p
	}
	return &resolved
}

func (r ImageResolver) BaseURL() string {
	return r.baseURL
}
