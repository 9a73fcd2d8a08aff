package service

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// slugify lowercases and reduces a title to a URL-safe slug.
func slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "untitled"
	}
	return slug
}

// uniqueSlug appends "-N" until exists reports the candidate free. keep, when
// non-empty, is the entity's current slug and is always acceptable.
func uniqueSlug(ctx context.Context, base, keep string, exists func(ctx context.Context, slug string) (bool, error)) (string, error) {
	slug := base
	for counter := 1; ; counter++ {
		if slug == keep {
			return slug, nil
		}
		taken, err := exists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, counter)
	}
}
