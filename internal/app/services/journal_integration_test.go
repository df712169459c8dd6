//go:build integration

package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"mime/multipart"
	"net/textproto"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/classjournal/internal/app/auth"
	"github.com/yigit/classjournal/internal/app/models"
	"github.com/yigit/classjournal/internal/app/models/dto"
	"github.com/yigit/classjournal/internal/app/repositories"
	"github.com/yigit/classjournal/internal/db"
	"github.com/yigit/classjournal/internal/pkg/apperrors"
	"github.com/yigit/classjournal/internal/pkg/filestorage"
	"github.com/yigit/classjournal/internal/pkg/helpers"
	"github.com/yigit/classjournal/internal/testutil/testdb"
)

type recordingDispatcher struct {
	inApp    []models.Notification
	inAppOff bool
}

func (d *recordingDispatcher) DispatchInApp(_ context.Context, n models.Notification) error {
	if d.inAppOff {
		return ErrChannelDisabled
	}
	d.inApp = append(d.inApp, n)
	return nil
}
func (d *recordingDispatcher) EnqueueEmail(context.Context, models.Notification) error {
	return ErrChannelDisabled
}
func (d *recordingDispatcher) BufferDigest(context.Context, models.EmailFrequency, models.Notification) error {
	return ErrChannelDisabled
}
func (d *recordingDispatcher) EnqueuePush(context.Context, models.Notification) error {
	return ErrChannelDisabled
}

func (d *recordingDispatcher) byType(kind models.NotificationType) []int64 {
	var users []int64
	for _, n := range d.inApp {
		if n.Type == kind {
			users = append(users, n.UserID)
		}
	}
	return users
}

// countingBlobs stands in for the blob store and records what was stored and removed
type countingBlobs struct {
	mu      sync.Mutex
	puts    []string
	deleted []string
}

func (b *countingBlobs) Put(_ context.Context, fh *multipart.FileHeader) (filestorage.StoredBlob, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	locator := fmt.Sprintf("blob-%d-%s", len(b.puts)+1, fh.Filename)
	b.puts = append(b.puts, locator)
	return filestorage.StoredBlob{
		Locator:  locator,
		URL:      "http://localhost/uploads/" + locator,
		Filename: fh.Filename,
		MimeType: fh.Header.Get("Content-Type"),
		Size:     fh.Size,
	}, nil
}

func (b *countingBlobs) Delete(_ context.Context, locator string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, locator)
	return nil
}

func upload(name, contentType string) *multipart.FileHeader {
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", contentType)
	return &multipart.FileHeader{Filename: name, Header: h, Size: 64}
}

type fixture struct {
	repos         *repositories.Repositories
	blobs         *countingBlobs
	journals      *journalServiceImpl
	feed          *feedServiceImpl
	notifications NotificationService
	dispatcher    *recordingDispatcher
	teacher       int64
	otherTeacher  int64
	student1      int64
	student2      int64
	student3      int64
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	pool := testdb.New(t)
	ctx := context.Background()

	repos := repositories.NewRepositories(pool)
	create := func(name string, role models.RoleType) int64 {
		id, err := repos.UserRepository.Create(ctx, &models.User{Username: name, Role: role})
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		return id
	}

	blobs := &countingBlobs{}
	database := db.NewFromPool(pool)
	dispatcher := &recordingDispatcher{}
	notifications := NewNotificationService(repos, dispatcher, zerolog.Nop())

	return fixture{
		repos:         repos,
		blobs:         blobs,
		journals:      NewJournalService(database, repos, blobs, notifications, zerolog.Nop()).(*journalServiceImpl),
		feed:          NewFeedService(database, repos, zerolog.Nop()).(*feedServiceImpl),
		notifications: notifications,
		dispatcher:    dispatcher,
		teacher:       create("teacher1", models.RoleTeacher),
		otherTeacher:  create("teacher2", models.RoleTeacher),
		student1:      create("student1", models.RoleStudent),
		student2:      create("student2", models.RoleStudent),
		student3:      create("student3", models.RoleStudent),
	}
}

func ptr(t time.Time) *time.Time { return &t }

func TestJournalLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.journals.CreateJournal(ctx, f.teacher, &dto.CreateJournalRequest{
		Title:       "Art Class",
		Description: "Watercolour basics",
		StudentIDs:  []int64{f.student1, f.student1},
		PublishedAt: ptr(time.Now().Add(-time.Minute)),
	}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != models.StatePublished || !created.IsPublished {
		t.Errorf("journal with a past publish time should be published, got %s", created.Status)
	}
	if len(created.TaggedStudents) != 1 || created.TaggedStudents[0].ID != f.student1 {
		t.Errorf("tags = %+v", created.TaggedStudents)
	}
	if got := f.dispatcher.byType(models.NotificationJournalPublish); len(got) != 1 || got[0] != f.student1 {
		t.Errorf("publish notifications = %v", got)
	}

	// Student 1 sees it and reading marks it viewed
	feed, err := f.feed.GetFeed(ctx, auth.Student{ID: f.student1}, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(feed.Journals) != 1 || feed.Journals[0].ID != created.ID {
		t.Fatalf("student feed = %+v", feed.Journals)
	}

	states, err := f.journals.ListTagStates(ctx, created.ID, f.teacher)
	if err != nil {
		t.Fatal(err)
	}
	if len(states) != 1 || !states[0].HasViewedJournal || !states[0].NotificationSent {
		t.Errorf("tag states = %+v", states)
	}

	// Student 2 is not tagged
	if _, err := f.feed.GetByID(ctx, auth.Student{ID: f.student2}, created.ID); !errors.Is(err, apperrors.ErrNotFoundOrForbidden) {
		t.Errorf("untagged student should get not-found, got %v", err)
	}

	// Another teacher can neither read nor modify it
	if _, err := f.feed.GetByID(ctx, auth.Teacher{ID: f.otherTeacher}, created.ID); !errors.Is(err, apperrors.ErrNotFoundOrForbidden) {
		t.Errorf("other teacher read: %v", err)
	}
	_, err = f.journals.UpdateJournal(ctx, created.ID, f.otherTeacher, &dto.UpdateJournalRequest{Title: dto.Some("Hijack")}, nil)
	if !errors.Is(err, apperrors.ErrNotFoundOrForbidden) {
		t.Errorf("other teacher update: %v", err)
	}

	// Tagging student 2 on a live journal notifies only the new student with TAG,
	// and the title change goes to the existing one as UPDATE
	_, err = f.journals.UpdateJournal(ctx, created.ID, f.teacher, &dto.UpdateJournalRequest{
		Title:      dto.Some("Art Class II"),
		StudentIDs: dto.Some([]int64{f.student1, f.student2}),
	}, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := f.dispatcher.byType(models.NotificationJournalTag); len(got) != 1 || got[0] != f.student2 {
		t.Errorf("tag notifications = %v", got)
	}
	if got := f.dispatcher.byType(models.NotificationJournalUpdate); len(got) != 1 || got[0] != f.student1 {
		t.Errorf("update notifications = %v", got)
	}

	conn, err := f.notifications.ListNotifications(ctx, f.student1, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if conn.TotalCount != 2 {
		t.Errorf("student1 notifications = %d, want 2", conn.TotalCount)
	}

	// Unpublishing a live journal is rejected
	_, err = f.journals.UpdateJournal(ctx, created.ID, f.teacher, &dto.UpdateJournalRequest{PublishedAt: dto.Some[*time.Time](nil)}, nil)
	if !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Errorf("unpublish: %v", err)
	}

	if err := f.journals.DeleteJournal(ctx, created.ID, f.teacher); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.feed.GetByID(ctx, auth.Teacher{ID: f.teacher}, created.ID); !errors.Is(err, apperrors.ErrNotFoundOrForbidden) {
		t.Errorf("deleted journal read: %v", err)
	}
	if err := f.journals.DeleteJournal(ctx, created.ID, f.teacher); !errors.Is(err, apperrors.ErrNotFoundOrForbidden) {
		t.Errorf("second delete: %v", err)
	}
}

func TestScheduledJournalPublishedExplicitly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	start := time.Now().UTC().Truncate(time.Second)
	f.journals.now = func() time.Time { return start }

	created, err := f.journals.CreateJournal(ctx, f.teacher, &dto.CreateJournalRequest{
		Title:       "Field trip",
		Description: "Bring lunch",
		StudentIDs:  []int64{f.student1},
		PublishedAt: ptr(start.Add(time.Hour)),
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if created.Status != models.StateScheduled || created.IsPublished {
		t.Errorf("future publish time should schedule, got %s", created.Status)
	}
	if got := f.dispatcher.byType(models.NotificationJournalPublish); len(got) != 0 {
		t.Errorf("scheduled journal must not notify yet, got %v", got)
	}

	feed, err := f.feed.GetFeed(ctx, auth.Student{ID: f.student1}, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(feed.Journals) != 0 {
		t.Errorf("scheduled journal visible to student: %+v", feed.Journals)
	}

	// Teachers see their own journals in every state
	teacherFeed, err := f.feed.GetFeed(ctx, auth.Teacher{ID: f.teacher}, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(teacherFeed.Journals) != 1 {
		t.Errorf("teacher feed = %d journals", len(teacherFeed.Journals))
	}

	// Publishing now makes it live and notifies
	published, err := f.journals.PublishJournal(ctx, created.ID, f.teacher, nil)
	if err != nil {
		t.Fatal(err)
	}
	if published.Status != models.StatePublished {
		t.Errorf("status after publish = %s", published.Status)
	}
	if got := f.dispatcher.byType(models.NotificationJournalPublish); len(got) != 1 || got[0] != f.student1 {
		t.Errorf("publish notifications = %v", got)
	}

	if _, err := f.feed.GetByID(ctx, auth.Student{ID: f.student1}, created.ID); err != nil {
		t.Errorf("published journal should be readable: %v", err)
	}
}

func TestCreateJournalRejectsNonStudentTags(t *testing.T) {
	f := newFixture(t)

	_, err := f.journals.CreateJournal(context.Background(), f.teacher, &dto.CreateJournalRequest{
		Title:       "Mixed",
		Description: "Tags a teacher",
		StudentIDs:  []int64{f.student1, f.otherTeacher},
	}, nil)
	if !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Fatalf("expected validation error, got %v", err)
	}

	feed, err := f.feed.GetFeed(context.Background(), auth.Teacher{ID: f.teacher}, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(feed.Journals) != 0 {
		t.Error("rejected create must not leave a journal behind")
	}
}

func TestDraftJournalIsHiddenFromStudents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draft, err := f.journals.CreateJournal(ctx, f.teacher, &dto.CreateJournalRequest{
		Title:       "Notes",
		Description: "Not ready",
		StudentIDs:  []int64{f.student1},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if draft.Status != models.StateDraft {
		t.Errorf("status = %s, want DRAFT", draft.Status)
	}
	if _, err := f.feed.GetByID(ctx, auth.Student{ID: f.student1}, draft.ID); !errors.Is(err, apperrors.ErrNotFoundOrForbidden) {
		t.Errorf("draft readable by student: %v", err)
	}
	if len(f.dispatcher.inApp) != 0 {
		t.Errorf("draft must not notify, got %d", len(f.dispatcher.inApp))
	}
}

func tagStates(t *testing.T, f fixture, journalID int64) map[int64]dto.TagStateResponse {
	t.Helper()
	states, err := f.journals.ListTagStates(context.Background(), journalID, f.teacher)
	if err != nil {
		t.Fatal(err)
	}
	out := make(map[int64]dto.TagStateResponse, len(states))
	for _, s := range states {
		out[s.StudentID] = s
	}
	return out
}

func TestViewedFlagIsPerStudentAndResetByReplace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.journals.CreateJournal(ctx, f.teacher, &dto.CreateJournalRequest{
		Title:       "Music",
		Description: "Scales",
		StudentIDs:  []int64{f.student1, f.student2},
		PublishedAt: ptr(time.Now().Add(-time.Minute)),
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.feed.GetFeed(ctx, auth.Student{ID: f.student1}, 1, 10); err != nil {
		t.Fatal(err)
	}
	states := tagStates(t, f, created.ID)
	if !states[f.student1].HasViewedJournal {
		t.Error("reader should be marked as having viewed the journal")
	}
	if states[f.student2].HasViewedJournal {
		t.Error("another student's read must not mark student 2")
	}

	if _, err := f.feed.GetByID(ctx, auth.Student{ID: f.student2}, created.ID); err != nil {
		t.Fatal(err)
	}
	if !tagStates(t, f, created.ID)[f.student2].HasViewedJournal {
		t.Error("reading by id should mark student 2")
	}

	// {1,2} -> {2,3}: exactly the new set, every flag starts over
	_, err = f.journals.UpdateJournal(ctx, created.ID, f.teacher, &dto.UpdateJournalRequest{
		StudentIDs: dto.Some([]int64{f.student2, f.student3}),
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	states = tagStates(t, f, created.ID)
	if len(states) != 2 {
		t.Fatalf("tags = %+v, want students 2 and 3", states)
	}
	if _, ok := states[f.student1]; ok {
		t.Error("student 1 should no longer be tagged")
	}
	for _, id := range []int64{f.student2, f.student3} {
		s, ok := states[id]
		if !ok {
			t.Fatalf("student %d missing from %+v", id, states)
		}
		if s.HasViewedJournal {
			t.Errorf("student %d keeps a viewed flag across the replace", id)
		}
	}
}

func TestAttachmentBlobsFollowTheirRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.journals.CreateJournal(ctx, f.teacher, &dto.CreateJournalRequest{
		Title:       "Lab report",
		Description: "Photos and the write-up",
	}, []*multipart.FileHeader{
		upload("bench.png", "image/png"),
		upload("report.pdf", "application/pdf"),
		upload("clip.mp4", "video/mp4"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(created.Attachments) != 3 || len(f.blobs.puts) != 3 {
		t.Fatalf("attachments = %+v, blobs stored = %v", created.Attachments, f.blobs.puts)
	}
	kinds := map[models.AttachmentKind]bool{}
	for _, a := range created.Attachments {
		kinds[a.Type] = true
	}
	if !kinds[models.AttachmentImage] || !kinds[models.AttachmentPDF] || !kinds[models.AttachmentVideo] {
		t.Errorf("kinds = %v", kinds)
	}

	// removing one attachment drops its row and its blob only
	_, err = f.journals.UpdateJournal(ctx, created.ID, f.teacher, &dto.UpdateJournalRequest{
		RemoveAttachmentIDs: []int64{created.Attachments[0].ID},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if n, err := f.repos.AttachmentRepository.Count(ctx, created.ID); err != nil || n != 2 {
		t.Errorf("attachments after removal = %d (%v)", n, err)
	}
	if len(f.blobs.deleted) != 1 {
		t.Errorf("blobs deleted after removal = %v", f.blobs.deleted)
	}

	if err := f.journals.DeleteJournal(ctx, created.ID, f.teacher); err != nil {
		t.Fatal(err)
	}
	if n, err := f.repos.AttachmentRepository.Count(ctx, created.ID); err != nil || n != 0 {
		t.Errorf("attachments after delete = %d (%v)", n, err)
	}

	stored := append([]string(nil), f.blobs.puts...)
	deleted := append([]string(nil), f.blobs.deleted...)
	sort.Strings(stored)
	sort.Strings(deleted)
	if fmt.Sprint(stored) != fmt.Sprint(deleted) {
		t.Errorf("every stored blob should be deleted exactly once: stored %v deleted %v", stored, deleted)
	}
}

func TestFailedCreateDiscardsUploadedBlobs(t *testing.T) {
	f := newFixture(t)

	_, err := f.journals.CreateJournal(context.Background(), f.teacher, &dto.CreateJournalRequest{
		Title:       "Mixed",
		Description: "Tags a teacher",
		StudentIDs:  []int64{f.otherTeacher},
	}, []*multipart.FileHeader{upload("a.png", "image/png"), upload("b.png", "image/png")})
	if !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(f.blobs.puts) != 2 || len(f.blobs.deleted) != 2 {
		t.Errorf("stored %v, deleted %v", f.blobs.puts, f.blobs.deleted)
	}
}

func TestScheduledJournalBecomesVisibleWithoutWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	start := time.Now().UTC().Truncate(time.Second)
	f.journals.now = func() time.Time { return start }
	f.feed.now = func() time.Time { return start }

	created, err := f.journals.CreateJournal(ctx, f.teacher, &dto.CreateJournalRequest{
		Title:       "Concert",
		Description: "Doors open at six",
		StudentIDs:  []int64{f.student1},
		PublishedAt: ptr(start.Add(time.Hour)),
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.feed.GetByID(ctx, auth.Student{ID: f.student1}, created.ID); !errors.Is(err, apperrors.ErrNotFoundOrForbidden) {
		t.Fatalf("scheduled journal readable before its time: %v", err)
	}

	// only the clock moves; nothing writes to the journal
	f.feed.now = func() time.Time { return start.Add(2 * time.Hour) }

	feed, err := f.feed.GetFeed(ctx, auth.Student{ID: f.student1}, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(feed.Journals) != 1 || feed.Journals[0].ID != created.ID {
		t.Fatalf("student feed = %+v", feed.Journals)
	}
	got := feed.Journals[0]
	if got.Status != models.StatePublished {
		t.Errorf("live status = %s, want PUBLISHED", got.Status)
	}
	if got.IsPublished {
		t.Error("stored snapshot should still be false until the next write")
	}
	if _, err := f.feed.GetByID(ctx, auth.Student{ID: f.student1}, created.ID); err != nil {
		t.Errorf("journal should be readable once its time passed: %v", err)
	}
}

func TestFeedPageBeyondTheEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.journals.CreateJournal(ctx, f.teacher, &dto.CreateJournalRequest{
			Title:       fmt.Sprintf("Lesson %d", i+1),
			Description: "Notes",
		}, nil)
		if err != nil {
			t.Fatal(err)
		}
	}

	feed, err := f.feed.GetFeed(ctx, auth.Teacher{ID: f.teacher}, 5, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(feed.Journals) != 0 {
		t.Errorf("page 5 should be empty, got %d journals", len(feed.Journals))
	}
	want := dto.PaginationInfo{Total: 3, Page: 5, Limit: 10, TotalPages: 1, HasNextPage: false, HasPrevPage: true}
	if feed.Pagination != want {
		t.Errorf("pagination = %+v, want %+v", feed.Pagination, want)
	}

	huge, err := f.feed.GetFeed(ctx, auth.Teacher{ID: f.teacher}, math.MaxInt, 16)
	if err != nil {
		t.Fatal(err)
	}
	if len(huge.Journals) != 0 || huge.Pagination.Page != helpers.MaxPage {
		t.Errorf("huge page returned %d journals, page %d", len(huge.Journals), huge.Pagination.Page)
	}
}

func TestStaleDeliveryConfirmationIsIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.journals.CreateJournal(ctx, f.teacher, &dto.CreateJournalRequest{
		Title:       "Sports day",
		Description: "Bring trainers",
		StudentIDs:  []int64{f.student1},
		PublishedAt: ptr(time.Now().Add(-time.Minute)),
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.dispatcher.inApp) != 1 {
		t.Fatalf("in-app notifications = %d", len(f.dispatcher.inApp))
	}
	first := f.dispatcher.inApp[0]

	// re-publishing makes delivery owed again; nothing confirms it yet
	f.dispatcher.inAppOff = true
	if _, err := f.journals.PublishJournal(ctx, created.ID, f.teacher, nil); err != nil {
		t.Fatal(err)
	}
	if tagStates(t, f, created.ID)[f.student1].NotificationSent {
		t.Fatal("re-publish should reset notificationSent")
	}

	// a late confirmation of the first delivery must not count for the new one
	if err := f.repos.TagRepository.MarkNotificationSent(ctx, created.ID, f.student1, first.CreatedAt); err != nil {
		t.Fatal(err)
	}
	if tagStates(t, f, created.ID)[f.student1].NotificationSent {
		t.Error("confirmation issued before the reset marked the tag as sent")
	}

	if err := f.repos.TagRepository.MarkNotificationSent(ctx, created.ID, f.student1, time.Now().Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	if !tagStates(t, f, created.ID)[f.student1].NotificationSent {
		t.Error("confirmation issued after the reset should mark the tag")
	}
}

func TestListStudentsOrderedByUsername(t *testing.T) {
	f := newFixture(t)

	students, err := NewUserService(f.repos.UserRepository).ListStudents(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []dto.StudentListItem{
		{ID: f.student1, Username: "student1"},
		{ID: f.student2, Username: "student2"},
		{ID: f.student3, Username: "student3"},
	}
	if fmt.Sprint(students) != fmt.Sprint(want) {
		t.Errorf("students = %v, want %v (teachers excluded)", students, want)
	}
}
