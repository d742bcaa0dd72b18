package schema

import "strings"

// NormalizeRect canonicalizes a rectangle and rejects empty ones.
func NormalizeRect(r Rect) (Rect, error) {
	r = r.Canon()
	if r.Empty() {
		return Rect{}, ErrInvalidRect
	}
	return r, nil
}

// ValidateThreadID ensures a thread id matches [a-z0-9._-] with no normalization.
func ValidateThreadID(id ThreadID) error {
	raw := string(id)
	if raw == "" {
		return ErrUnknownDestination
	}
	if strings.TrimSpace(raw) != raw {
		return ErrUnknownDestination
	}
	for _, r := range raw {
		if r >= 'a' && r <= 'z' {
			continue
		}
		if r >= '0' && r <= '9' {
			continue
		}
		if r == '.' || r == '_' || r == '-' {
			continue
		}
		return ErrUnknownDestination
	}
	return nil
}
