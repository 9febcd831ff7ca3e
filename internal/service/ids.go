package service

import (
	"github.com/google/uuid"

	apperrors "github.com/wokeornotsite/wokeornot-sub000/pkg/errors"
)

// checkID rejects ids that cannot name a row before they reach a UUID
// column. They are reported as missing rather than invalid.
func checkID(resource, id string) error {
	if len(id) != 36 {
		return apperrors.NotFound(resource, id)
	}
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NotFound(resource, id)
	}
	return nil
}

// canonicalID parses id in any accepted UUID spelling and returns its
// canonical text form.
func canonicalID(id string) (string, bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return u.String(), true
}

// dedupe returns ids without duplicates or blanks, keeping first occurrences.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
