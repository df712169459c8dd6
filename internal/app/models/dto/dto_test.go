package dto

import (
	"encoding/json"
	"testing"

	"github.com/yigit/classjournal/internal/app/models"
)

func TestUpdateJournalRequest_Presence(t *testing.T) {
	var req UpdateJournalRequest
	body := `{"title":"","studentIds":[],"publishedAt":null}`
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !req.Title.Set || req.Title.Value != "" {
		t.Errorf("explicit empty title must be present: %+v", req.Title)
	}
	if req.Description.Set {
		t.Error("omitted description must not be present")
	}
	if !req.StudentIDs.Set || len(req.StudentIDs.Value) != 0 {
		t.Errorf("explicit empty studentIds must be present: %+v", req.StudentIDs)
	}
	if !req.PublishedAt.Set || req.PublishedAt.Value != nil {
		t.Errorf("explicit null publishedAt must be present and nil: %+v", req.PublishedAt)
	}
	if !req.HasContentChange() {
		t.Error("title change is a content change")
	}
}

func TestUpdateJournalRequest_PublishedAtValue(t *testing.T) {
	var req UpdateJournalRequest
	if err := json.Unmarshal([]byte(`{"publishedAt":"2030-01-02T03:04:05Z"}`), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !req.PublishedAt.Set || req.PublishedAt.Value == nil || req.PublishedAt.Value.Year() != 2030 {
		t.Fatalf("publishedAt not parsed: %+v", req.PublishedAt)
	}
	if req.HasContentChange() {
		t.Error("publishedAt alone is not a content change")
	}
}

func TestNewNotificationConnection(t *testing.T) {
	items := []models.Notification{{ID: 11}, {ID: 12}}

	conn := NewNotificationConnection(items, 2, 2, 5)
	if conn.TotalCount != 5 || len(conn.Edges) != 2 {
		t.Fatalf("unexpected connection: %+v", conn)
	}
	if !conn.PageInfo.HasNextPage || !conn.PageInfo.HasPreviousPage {
		t.Errorf("page info = %+v, want next and previous", conn.PageInfo)
	}
	if *conn.PageInfo.StartCursor != NotificationCursor(11) || *conn.PageInfo.EndCursor != NotificationCursor(12) {
		t.Errorf("cursors = %v %v", *conn.PageInfo.StartCursor, *conn.PageInfo.EndCursor)
	}
	if NotificationCursor(11) != "MTE=" {
		t.Errorf("cursor encoding = %q", NotificationCursor(11))
	}

	empty := NewNotificationConnection(nil, 1, 0, 0)
	if empty.PageInfo.HasNextPage || empty.PageInfo.HasPreviousPage || empty.PageInfo.StartCursor != nil {
		t.Errorf("empty page info = %+v", empty.PageInfo)
	}
}
