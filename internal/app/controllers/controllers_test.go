package controllers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/yigit/classjournal/internal/app/auth"
	"github.com/yigit/classjournal/internal/app/models"
	"github.com/yigit/classjournal/internal/app/models/dto"
	"github.com/yigit/classjournal/internal/pkg/apperrors"
	"github.com/yigit/classjournal/internal/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeJournalService struct {
	createReq   *dto.CreateJournalRequest
	updateReq   *dto.UpdateJournalRequest
	publishReq  *dto.PublishJournalRequest
	files       []*multipart.FileHeader
	teacherID   int64
	journalID   int64
	err         error
	exportBytes []byte
}

func (f *fakeJournalService) CreateJournal(_ context.Context, teacherID int64, req *dto.CreateJournalRequest, files []*multipart.FileHeader) (*dto.JournalResponse, error) {
	f.teacherID, f.createReq, f.files = teacherID, req, files
	if f.err != nil {
		return nil, f.err
	}
	return &dto.JournalResponse{ID: 1, Title: req.Title}, nil
}

func (f *fakeJournalService) UpdateJournal(_ context.Context, journalID, teacherID int64, req *dto.UpdateJournalRequest, files []*multipart.FileHeader) (*dto.JournalResponse, error) {
	f.journalID, f.teacherID, f.updateReq, f.files = journalID, teacherID, req, files
	if f.err != nil {
		return nil, f.err
	}
	return &dto.JournalResponse{ID: journalID}, nil
}

func (f *fakeJournalService) DeleteJournal(_ context.Context, journalID, teacherID int64) error {
	f.journalID, f.teacherID = journalID, teacherID
	return f.err
}

func (f *fakeJournalService) PublishJournal(_ context.Context, journalID, teacherID int64, req *dto.PublishJournalRequest) (*dto.JournalResponse, error) {
	f.journalID, f.teacherID, f.publishReq = journalID, teacherID, req
	if f.err != nil {
		return nil, f.err
	}
	return &dto.JournalResponse{ID: journalID, Status: models.StatePublished}, nil
}

func (f *fakeJournalService) ListTagStates(_ context.Context, journalID, teacherID int64) ([]dto.TagStateResponse, error) {
	f.journalID, f.teacherID = journalID, teacherID
	return []dto.TagStateResponse{{StudentID: 2, Username: "student1"}}, f.err
}

func (f *fakeJournalService) ExportTagStates(_ context.Context, journalID, teacherID int64) (string, []byte, error) {
	f.journalID, f.teacherID = journalID, teacherID
	return "journal-3-tags.xlsx", f.exportBytes, f.err
}

type fakeFeedService struct {
	requester auth.Requester
	page      int
	limit     int
	err       error
}

func (f *fakeFeedService) GetFeed(_ context.Context, r auth.Requester, page, limit int) (*dto.JournalFeedResponse, error) {
	f.requester, f.page, f.limit = r, page, limit
	if f.err != nil {
		return nil, f.err
	}
	return &dto.JournalFeedResponse{Journals: []dto.JournalResponse{}}, nil
}

func (f *fakeFeedService) GetByID(_ context.Context, r auth.Requester, id int64) (*dto.JournalResponse, error) {
	f.requester = r
	if f.err != nil {
		return nil, f.err
	}
	return &dto.JournalResponse{ID: id}, nil
}

type fakeNotificationService struct {
	userID int64
	prefs  *dto.UpdateNotificationPreferencesRequest
	err    error
}

func (f *fakeNotificationService) Notify(context.Context, models.NotificationType, models.Journal, []int64) {}

func (f *fakeNotificationService) ListNotifications(_ context.Context, userID int64, page, _ int) (*dto.NotificationConnection, error) {
	f.userID = userID
	conn := dto.NewNotificationConnection(nil, page, 0, 0)
	return &conn, f.err
}

func (f *fakeNotificationService) GetPreferences(_ context.Context, userID int64) (*dto.NotificationPreferenceResponse, error) {
	f.userID = userID
	resp := dto.NewNotificationPreferenceResponse(models.DefaultNotificationPreference(userID))
	return &resp, f.err
}

func (f *fakeNotificationService) UpdatePreferences(_ context.Context, userID int64, req *dto.UpdateNotificationPreferencesRequest) (*dto.NotificationPreferenceResponse, error) {
	f.userID, f.prefs = userID, req
	if f.err != nil {
		return nil, f.err
	}
	resp := dto.NotificationPreferenceResponse{}
	return &resp, nil
}

func (f *fakeNotificationService) MarkRead(_ context.Context, id, userID int64) (*models.Notification, error) {
	f.userID = userID
	if f.err != nil {
		return nil, f.err
	}
	return &models.Notification{ID: id, UserID: userID, IsRead: true}, nil
}

func (f *fakeNotificationService) MarkAllRead(_ context.Context, userID int64) (bool, error) {
	f.userID = userID
	return f.err == nil, f.err
}

// as stands in for JWTAuth
func as(userID int64, role models.RoleType) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Set(middleware.ContextRole, role)
		c.Next()
	}
}

func newRouter(userID int64, role models.RoleType, js *fakeJournalService, fs *fakeFeedService, ns *fakeNotificationService) *gin.Engine {
	r := gin.New()
	r.Use(as(userID, role))
	jc := NewJournalController(js)
	fc := NewFeedController(fs)
	nc := NewNotificationController(ns)

	r.POST("/journals", jc.CreateJournal)
	r.GET("/journals/feed", fc.GetFeed)
	r.GET("/journals/:id", fc.GetJournal)
	r.PUT("/journals/:id", jc.UpdateJournal)
	r.DELETE("/journals/:id", jc.DeleteJournal)
	r.PUT("/journals/:id/publish", jc.PublishJournal)
	r.GET("/journals/:id/tags", jc.ListTagStates)
	r.GET("/journals/:id/tags/export", jc.ExportTagStates)
	r.GET("/notifications", nc.ListNotifications)
	r.PATCH("/notifications/preferences", nc.UpdatePreferences)
	r.PUT("/notifications/:id/read", nc.MarkRead)
	return r
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, method, path string, fields map[string][]string, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, vs := range fields {
		for _, v := range vs {
			if err := mw.WriteField(k, v); err != nil {
				t.Fatal(err)
			}
		}
	}
	for name, contentType := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="attachments"; filename="`+name+`"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		part.Write([]byte("data"))
	}
	mw.Close()

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestCreateJournal_JSON(t *testing.T) {
	js := &fakeJournalService{}
	r := newRouter(1, models.RoleTeacher, js, &fakeFeedService{}, &fakeNotificationService{})

	w := do(r, jsonRequest(http.MethodPost, "/journals", `{"title":"Art Class","description":"Paint","studentIds":[2,3]}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	if js.teacherID != 1 || js.createReq.Title != "Art Class" || len(js.createReq.StudentIDs) != 2 {
		t.Errorf("unexpected request %+v teacher=%d", js.createReq, js.teacherID)
	}
}

func TestCreateJournal_StudentForbidden(t *testing.T) {
	js := &fakeJournalService{}
	r := newRouter(2, models.RoleStudent, js, &fakeFeedService{}, &fakeNotificationService{})

	w := do(r, jsonRequest(http.MethodPost, "/journals", `{"title":"Art Class","description":"Paint"}`))
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d", w.Code)
	}
	if js.createReq != nil {
		t.Error("service must not be called")
	}
}

func TestCreateJournal_Multipart(t *testing.T) {
	js := &fakeJournalService{}
	r := newRouter(1, models.RoleTeacher, js, &fakeFeedService{}, &fakeNotificationService{})

	req := multipartRequest(t, http.MethodPost, "/journals", map[string][]string{
		"title":       {"Art Class"},
		"description": {"Paint"},
		"studentIds":  {"2,3"},
		"publishedAt": {"2030-01-02T15:04:05Z"},
	}, map[string]string{"drawing.png": "image/png"})

	w := do(r, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	if len(js.files) != 1 || js.files[0].Filename != "drawing.png" {
		t.Errorf("files = %v", js.files)
	}
	if got := js.createReq.StudentIDs; len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Errorf("studentIds = %v", got)
	}
	if js.createReq.PublishedAt == nil || js.createReq.PublishedAt.Year() != 2030 {
		t.Errorf("publishedAt = %v", js.createReq.PublishedAt)
	}
}

func TestCreateJournal_BadTimestamp(t *testing.T) {
	js := &fakeJournalService{}
	r := newRouter(1, models.RoleTeacher, js, &fakeFeedService{}, &fakeNotificationService{})

	req := multipartRequest(t, http.MethodPost, "/journals", map[string][]string{
		"title":       {"Art Class"},
		"description": {"Paint"},
		"publishedAt": {"tomorrow"},
	}, nil)
	if w := do(r, req); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestUpdateJournal_JSONPresence(t *testing.T) {
	js := &fakeJournalService{}
	r := newRouter(1, models.RoleTeacher, js, &fakeFeedService{}, &fakeNotificationService{})

	w := do(r, jsonRequest(http.MethodPut, "/journals/7", `{"studentIds":[],"publishedAt":null}`))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	req := js.updateReq
	if js.journalID != 7 || req.Title.Set || req.Description.Set {
		t.Errorf("unexpected update %+v", req)
	}
	if !req.StudentIDs.Set || len(req.StudentIDs.Value) != 0 {
		t.Errorf("studentIds should be present and empty: %+v", req.StudentIDs)
	}
	if !req.PublishedAt.Set || req.PublishedAt.Value != nil {
		t.Errorf("publishedAt should be an explicit null: %+v", req.PublishedAt)
	}
}

func TestUpdateJournal_MultipartPresence(t *testing.T) {
	js := &fakeJournalService{}
	r := newRouter(1, models.RoleTeacher, js, &fakeFeedService{}, &fakeNotificationService{})

	req := multipartRequest(t, http.MethodPut, "/journals/7", map[string][]string{
		"title":               {"Renamed"},
		"studentIds":          {""},
		"removeAttachmentIds": {"4", "5"},
	}, nil)
	if w := do(r, req); w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	got := js.updateReq
	if !got.Title.Set || got.Title.Value != "Renamed" || got.Description.Set || got.PublishedAt.Set {
		t.Errorf("unexpected presence %+v", got)
	}
	if !got.StudentIDs.Set || len(got.StudentIDs.Value) != 0 {
		t.Errorf("empty studentIds should clear tags: %+v", got.StudentIDs)
	}
	if len(got.RemoveAttachmentIDs) != 2 {
		t.Errorf("removeAttachmentIds = %v", got.RemoveAttachmentIDs)
	}
}

func TestUpdateJournal_NotFound(t *testing.T) {
	js := &fakeJournalService{err: apperrors.NewNotFoundOrForbiddenError("journal not found")}
	r := newRouter(1, models.RoleTeacher, js, &fakeFeedService{}, &fakeNotificationService{})

	if w := do(r, jsonRequest(http.MethodPut, "/journals/7", `{"title":"New title"}`)); w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}

func TestPublishJournal_EmptyBody(t *testing.T) {
	js := &fakeJournalService{}
	r := newRouter(1, models.RoleTeacher, js, &fakeFeedService{}, &fakeNotificationService{})

	w := do(r, httptest.NewRequest(http.MethodPut, "/journals/3/publish", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	if js.publishReq == nil || js.publishReq.PublishedAt != nil {
		t.Errorf("publish request = %+v", js.publishReq)
	}
}

func TestDeleteJournal_InvalidID(t *testing.T) {
	js := &fakeJournalService{}
	r := newRouter(1, models.RoleTeacher, js, &fakeFeedService{}, &fakeNotificationService{})

	if w := do(r, httptest.NewRequest(http.MethodDelete, "/journals/abc", nil)); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
	if w := do(r, httptest.NewRequest(http.MethodDelete, "/journals/9", nil)); w.Code != http.StatusOK || js.journalID != 9 {
		t.Errorf("status = %d journal = %d", w.Code, js.journalID)
	}
}

func TestExportTagStates(t *testing.T) {
	js := &fakeJournalService{exportBytes: []byte("PK")}
	r := newRouter(1, models.RoleTeacher, js, &fakeFeedService{}, &fakeNotificationService{})

	w := do(r, httptest.NewRequest(http.MethodGet, "/journals/3/tags/export", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("content type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "journal-3-tags.xlsx") {
		t.Errorf("content disposition = %q", cd)
	}
}

func TestGetFeed(t *testing.T) {
	fs := &fakeFeedService{}
	r := newRouter(2, models.RoleStudent, &fakeJournalService{}, fs, &fakeNotificationService{})

	w := do(r, httptest.NewRequest(http.MethodGet, "/journals/feed?page=2&limit=5", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if _, ok := fs.requester.(auth.Student); !ok || fs.page != 2 || fs.limit != 5 {
		t.Errorf("requester = %#v page = %d limit = %d", fs.requester, fs.page, fs.limit)
	}
}

func TestGetJournal_Hidden(t *testing.T) {
	fs := &fakeFeedService{err: apperrors.NewNotFoundOrForbiddenError("journal not found")}
	r := newRouter(2, models.RoleStudent, &fakeJournalService{}, fs, &fakeNotificationService{})

	if w := do(r, httptest.NewRequest(http.MethodGet, "/journals/4", nil)); w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}

func TestNotificationRoutes(t *testing.T) {
	ns := &fakeNotificationService{}
	r := newRouter(2, models.RoleStudent, &fakeJournalService{}, &fakeFeedService{}, ns)

	if w := do(r, httptest.NewRequest(http.MethodGet, "/notifications", nil)); w.Code != http.StatusOK || ns.userID != 2 {
		t.Errorf("list: status = %d user = %d", w.Code, ns.userID)
	}

	w := do(r, jsonRequest(http.MethodPatch, "/notifications/preferences", `{"pushEnabled":true}`))
	if w.Code != http.StatusOK {
		t.Fatalf("preferences: status = %d body = %s", w.Code, w.Body.String())
	}
	if !ns.prefs.PushEnabled.Set || !ns.prefs.PushEnabled.Value || ns.prefs.EmailEnabled.Set {
		t.Errorf("preferences request = %+v", ns.prefs)
	}

	if w := do(r, httptest.NewRequest(http.MethodPut, "/notifications/11/read", nil)); w.Code != http.StatusOK {
		t.Errorf("mark read: status = %d", w.Code)
	}
}

func TestParseIDList(t *testing.T) {
	got, err := parseIDList("studentIds", []string{"1, 2", "[3,4]", "", "5"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 || got[0] != 1 || got[4] != 5 {
		t.Errorf("got %v", got)
	}
	if _, err := parseIDList("studentIds", []string{"x"}); err == nil {
		t.Error("expected error for non-numeric id")
	}
}
