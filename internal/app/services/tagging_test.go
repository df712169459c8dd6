package services

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/yigit/classjournal/internal/pkg/apperrors"
)

type fakeStudents map[int64]bool

func (f fakeStudents) FindStudentIDs(_ context.Context, ids []int64) ([]int64, error) {
	var out []int64
	for _, id := range ids {
		if f[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

type failingLookup struct{}

func (failingLookup) FindStudentIDs(context.Context, []int64) ([]int64, error) {
	return nil, errors.New("connection reset")
}

func TestNormalizeStudentIDs(t *testing.T) {
	got, err := normalizeStudentIDs([]int64{3, 1, 3, 2, 1})
	if err != nil {
		t.Fatal(err)
	}
	if want := []int64{3, 1, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	if _, err := normalizeStudentIDs([]int64{1, -4}); !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Errorf("negative id: got %v", err)
	}
}

func TestResolveStudents(t *testing.T) {
	ctx := context.Background()
	lookup := fakeStudents{2: true, 3: true}

	got, err := resolveStudents(ctx, lookup, []int64{2, 3, 2})
	if err != nil {
		t.Fatal(err)
	}
	if want := []int64{2, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	got, err = resolveStudents(ctx, lookup, nil)
	if err != nil || len(got) != 0 {
		t.Errorf("empty: got %v, %v", got, err)
	}

	_, err = resolveStudents(ctx, lookup, []int64{9, 2, 1})
	if !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Fatalf("unknown ids: got %v", err)
	}
	if msg := apperrors.Message(err); !strings.Contains(msg, "1, 9") {
		t.Errorf("message should list missing ids in order, got %q", msg)
	}

	_, err = resolveStudents(ctx, failingLookup{}, []int64{1})
	if err == nil || errors.Is(err, apperrors.ErrValidationFailed) {
		t.Errorf("lookup failure should not be a validation error, got %v", err)
	}
}

func TestAddedStudents(t *testing.T) {
	if got := addedStudents([]int64{1, 2}, []int64{2, 3, 4}); !reflect.DeepEqual(got, []int64{3, 4}) {
		t.Errorf("got %v", got)
	}
	if got := addedStudents([]int64{1, 2}, []int64{1}); len(got) != 0 {
		t.Errorf("expected none added, got %v", got)
	}
}

func TestWithoutStudents(t *testing.T) {
	if got := withoutStudents([]int64{1, 2, 3}, []int64{2}); !reflect.DeepEqual(got, []int64{1, 3}) {
		t.Errorf("got %v", got)
	}
}
