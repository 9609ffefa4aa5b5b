// Package identity maps raw handles and names onto canonical contributors.
package identity

import (
	"strings"

	"ContributionScorer/internal/domain"
)

// Marker is the optional leading character on chat handles.
const Marker = "@"

// Resolver looks handles up in an in-memory copy of the identity table.
type Resolver struct {
	aliases map[aliasKey]string
	// loose maps a handle to its first owner on any platform.
	loose map[string]string
	names map[string]string
}

type aliasKey struct {
	platform string
	handle   string
}

// NewResolver indexes the given identities. Aliases with an empty platform
// match on every platform.
func NewResolver(identities []domain.Identity) *Resolver {
	r := &Resolver{
		aliases: map[aliasKey]string{},
		loose:   map[string]string{},
		names:   map[string]string{},
	}
	for _, id := range identities {
		name := strings.TrimSpace(id.Name)
		if name == "" {
			continue
		}
		r.names[normalize(name)] = name
		for _, a := range id.Aliases {
			h := normalize(a.Handle)
			if h == "" {
				continue
			}
			r.aliases[aliasKey{normalize(a.Platform), h}] = name
			if _, ok := r.loose[h]; !ok {
				r.loose[h] = name
			}
		}
	}
	return r
}

// Resolve returns the canonical name for raw and whether it was found.
// Aliases on platform win over aliases registered on any other platform.
// Unresolved handles come back trimmed but otherwise as reported.
func (r *Resolver) Resolve(raw, platform string) (string, bool) {
	key := normalize(raw)
	if key == "" {
		return "", false
	}
	p := normalize(platform)

	for _, form := range []string{key, complement(key)} {
		if name, ok := r.aliases[aliasKey{p, form}]; ok {
			return name, true
		}
		if name, ok := r.aliases[aliasKey{"", form}]; ok {
			return name, true
		}
		if name, ok := r.loose[form]; ok {
			return name, true
		}
		if name, ok := r.names[form]; ok {
			return name, true
		}
	}
	return strings.TrimSpace(raw), false
}

func complement(handle string) string {
	if strings.HasPrefix(handle, Marker) {
		return strings.TrimPrefix(handle, Marker)
	}
	return Marker + handle
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
