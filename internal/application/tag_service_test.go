package application

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func newTagFixture(t *testing.T) (*TagService, *memStore) {
	t.Helper()
	store := newMemStore()
	svc := NewTagService(store, newSequentialIDs("tag"), fixedNow, nil)
	return svc, store
}

func TestTagService_CreateTag(t *testing.T) {
	t.Run("creates with normalized color", func(t *testing.T) {
		svc, _ := newTagFixture(t)

		created, err := svc.CreateTag(context.Background(), "user-1", "urgent", "  #ff00aa ")
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		if created.Color != "#FF00AA" {
			t.Fatalf("color = %q, want #FF00AA", created.Color)
		}
		if created.CreatedBy != "user-1" || created.Name != "urgent" {
			t.Fatalf("created = %+v", created)
		}
	})

	t.Run("accepts short hex form", func(t *testing.T) {
		svc, _ := newTagFixture(t)

		created, err := svc.CreateTag(context.Background(), "user-1", "short", "#abc")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if created.Color != "#ABC" {
			t.Fatalf("color = %q, want #ABC", created.Color)
		}
	})

	t.Run("rejects malformed color", func(t *testing.T) {
		svc, _ := newTagFixture(t)

		for _, color := range []string{"", "red", "#12345", "#GGGGGG", "123456"} {
			_, err := svc.CreateTag(context.Background(), "user-1", "bad", color)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Errorf("color %q: expected ValidationError, got %v", color, err)
			}
		}
	})

	t.Run("rejects blank and oversized names", func(t *testing.T) {
		svc, _ := newTagFixture(t)

		for _, name := range []string{"", "   ", strings.Repeat("x", 51)} {
			_, err := svc.CreateTag(context.Background(), "user-1", name, "#FFFFFF")
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Errorf("name %q: expected ValidationError, got %v", name, err)
			}
		}
	})

	t.Run("name at the length limit is accepted", func(t *testing.T) {
		svc, _ := newTagFixture(t)

		if _, err := svc.CreateTag(context.Background(), "user-1", strings.Repeat("x", 50), "#FFFFFF"); err != nil {
			t.Fatalf("create: %v", err)
		}
	})

	t.Run("name survives encoding round-trip", func(t *testing.T) {
		svc, store := newTagFixture(t)

		created, err := svc.CreateTag(context.Background(), "user-1", "p0 <hot>", "#FFFFFF")
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		if created.Name != "p0 <hot>" {
			t.Fatalf("decoded name = %q", created.Name)
		}
		if store.tags[created.ID].Name == created.Name {
			t.Fatalf("stored name %q was not encoded", store.tags[created.ID].Name)
		}
	})
}

func TestTagService_UpdateTag(t *testing.T) {
	seed := func(t *testing.T) (*TagService, Tag) {
		t.Helper()
		svc, _ := newTagFixture(t)
		created, err := svc.CreateTag(context.Background(), "user-1", "urgent", "#FF0000")
		if err != nil {
			t.Fatalf("seed create: %v", err)
		}
		return svc, created
	}

	t.Run("updates name and color", func(t *testing.T) {
		svc, created := seed(t)

		name, color := "later", "#00ff00"
		updated, err := svc.UpdateTag(context.Background(), "user-1", created.ID, TagPatch{Name: &name, Color: &color})
		if err != nil {
			t.Fatalf("update: %v", err)
		}

		if updated.Name != "later" || updated.Color != "#00FF00" {
			t.Fatalf("updated = %+v", updated)
		}
	})

	t.Run("non-creator is forbidden", func(t *testing.T) {
		svc, created := seed(t)

		name := "hijack"
		_, err := svc.UpdateTag(context.Background(), "user-2", created.ID, TagPatch{Name: &name})

		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("createdBy overwrite is forbidden", func(t *testing.T) {
		svc, created := seed(t)

		_, err := svc.UpdateTag(context.Background(), "user-1", created.ID, TagPatch{CreatedBy: "user-2"})

		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("missing tag yields not found", func(t *testing.T) {
		svc, _ := newTagFixture(t)

		name := "ghost"
		_, err := svc.UpdateTag(context.Background(), "user-1", "tag-missing", TagPatch{Name: &name})

		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestTagService_DeleteTag(t *testing.T) {
	svc, store := newTagFixture(t)
	ctx := context.Background()

	created, err := svc.CreateTag(ctx, "user-1", "urgent", "#FF0000")
	if err != nil {
		t.Fatalf("seed create: %v", err)
	}

	if err := svc.DeleteTag(ctx, "user-2", created.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-creator, got %v", err)
	}
	if err := svc.DeleteTag(ctx, "user-1", created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(store.tags) != 0 {
		t.Fatalf("stored tags = %d", len(store.tags))
	}
	if err := svc.DeleteTag(ctx, "user-1", created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestTagService_GetTagsByOwnerID(t *testing.T) {
	svc, _ := newTagFixture(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b"} {
		if _, err := svc.CreateTag(ctx, "user-1", name, "#FFFFFF"); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	if _, err := svc.CreateTag(ctx, "user-2", "c", "#FFFFFF"); err != nil {
		t.Fatalf("create other: %v", err)
	}

	tags, err := svc.GetTagsByOwnerID(ctx, "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("got %d tags, want 2", len(tags))
	}
}
