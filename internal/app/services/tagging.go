package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/yigit/classjournal/internal/pkg/apperrors"
)

// studentLookup resolves which ids belong to student users
type studentLookup interface {
	FindStudentIDs(ctx context.Context, ids []int64) ([]int64, error)
}

// normalizeStudentIDs drops duplicates, keeping first-seen order. Non-positive ids are rejected.
func normalizeStudentIDs(ids []int64) ([]int64, error) {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, apperrors.NewFieldValidationError("studentIds", fmt.Sprintf("invalid student id %d", id))
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// resolveStudents normalizes ids and checks that every one is a student.
// The whole set fails if any id does not resolve.
func resolveStudents(ctx context.Context, lookup studentLookup, ids []int64) ([]int64, error) {
	ids, err := normalizeStudentIDs(ids)
	if err != nil || len(ids) == 0 {
		return ids, err
	}

	found, err := lookup.FindStudentIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve students: %w", err)
	}
	if len(found) == len(ids) {
		return ids, nil
	}

	ok := make(map[int64]struct{}, len(found))
	for _, id := range found {
		ok[id] = struct{}{}
	}
	var missing []int64
	for _, id := range ids {
		if _, hit := ok[id]; !hit {
			missing = append(missing, id)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })

	parts := make([]string, len(missing))
	for i, id := range missing {
		parts[i] = fmt.Sprint(id)
	}
	return nil, apperrors.NewFieldValidationError("studentIds", "unknown or non-student ids: "+strings.Join(parts, ", "))
}

// addedStudents returns the ids in next that are not in prev
func addedStudents(prev, next []int64) []int64 {
	had := make(map[int64]struct{}, len(prev))
	for _, id := range prev {
		had[id] = struct{}{}
	}
	var added []int64
	for _, id := range next {
		if _, ok := had[id]; !ok {
			added = append(added, id)
		}
	}
	return added
}
