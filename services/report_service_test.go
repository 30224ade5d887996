package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/techagentng/findmenow/config"
	"github.com/techagentng/findmenow/db"
	errs "github.com/techagentng/findmenow/errors"
	"github.com/techagentng/findmenow/localstore"
	"github.com/techagentng/findmenow/models"
)

var pngPhoto = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type mockBlobStore struct {
	mock.Mock
}

func (m *mockBlobStore) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, data, contentType)
	return args.String(0), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) ReportPending(ctx context.Context, r *models.Report) error {
	return m.Called(ctx, r).Error(0)
}

// moderatedStore gives the local store a moderation gate so both paths can be exercised in memory.
type moderatedStore struct {
	db.RecordStore
}

func (moderatedStore) Moderated() bool { return true }

type failingCreateStore struct {
	db.RecordStore
}

func (failingCreateStore) CreateReport(context.Context, *models.Report) error {
	return errors.New("disk full")
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func testConfig() *config.Config {
	return &config.Config{Backend: config.BackendLocal, MaxPhotoBytes: 10 << 20}
}

func validInput(name string) models.ReportInput {
	return models.ReportInput{
		FullName:         name,
		LastSeenLocation: "Tejuosho Market",
		Description:      "Blue school uniform",
		MissingDate:      "2024-05-01",
	}
}

type fixture struct {
	svc      ReportService
	blobs    *mockBlobStore
	notifier *mockNotifier
	clock    *clock
}

func newFixture(t *testing.T, moderated bool) *fixture {
	t.Helper()
	var store db.RecordStore = db.NewLocalStore(localstore.NewMemory())
	if moderated {
		store = moderatedStore{store}
	}
	f := &fixture{
		blobs:    new(mockBlobStore),
		notifier: new(mockNotifier),
		clock:    &clock{t: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)},
	}
	f.svc = NewReportService(store, f.blobs, f.notifier, testConfig(), WithClock(f.clock.Now))
	return f
}

func (f *fixture) submit(t *testing.T, name, reporter string) string {
	t.Helper()
	f.blobs.On("Upload", mock.Anything, pngPhoto, "image/png").Return("https://cdn.test/"+name, nil).Maybe()
	f.notifier.On("ReportPending", mock.Anything, mock.Anything).Return(nil).Maybe()
	id, err := f.svc.SubmitReport(context.Background(), validInput(name), pngPhoto, reporter)
	require.NoError(t, err)
	return id
}

func TestSubmitReport_Moderated(t *testing.T) {
	f := newFixture(t, true)
	f.blobs.On("Upload", mock.Anything, pngPhoto, "image/png").Return("https://cdn.test/ada.png", nil).Once()
	f.notifier.On("ReportPending", mock.Anything, mock.MatchedBy(func(r *models.Report) bool {
		return r.FullName == "Ada Obi"
	})).Return(nil).Once()

	id, err := f.svc.SubmitReport(context.Background(), validInput("  Ada Obi  "), pngPhoto, "user-1")
	require.NoError(t, err)

	r, err := f.svc.GetReport(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Ada Obi", r.FullName)
	assert.Equal(t, models.StatusPending, r.ModerationStatus)
	assert.Equal(t, models.DispositionMissing, r.Disposition)
	assert.Equal(t, "https://cdn.test/ada.png", r.PhotoURL)
	assert.Equal(t, "user-1", r.ReporterID)
	assert.Empty(t, r.Likes)
	assert.False(t, r.PoliceNotified)

	f.blobs.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestSubmitReport_UnmoderatedIsPublishedWithoutNotice(t *testing.T) {
	f := newFixture(t, false)
	f.blobs.On("Upload", mock.Anything, pngPhoto, "image/png").Return("data:image/png;base64,xx", nil).Once()

	id, err := f.svc.SubmitReport(context.Background(), validInput("Ada"), pngPhoto, "")
	require.NoError(t, err)

	r, err := f.svc.GetReport(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, r.ModerationStatus)
	assert.Equal(t, models.AnonymousReporter, r.ReporterID)
	f.notifier.AssertNotCalled(t, "ReportPending", mock.Anything, mock.Anything)
}

func TestSubmitReport_ValidationFailsBeforeUpload(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*models.ReportInput)
		photo  []byte
		field  string
	}{
		{"missing name", func(in *models.ReportInput) { in.FullName = "   " }, pngPhoto, "full_name"},
		{"missing location", func(in *models.ReportInput) { in.LastSeenLocation = "" }, pngPhoto, "last_seen_location"},
		{"missing description", func(in *models.ReportInput) { in.Description = "" }, pngPhoto, "description"},
		{"malformed date", func(in *models.ReportInput) { in.MissingDate = "01/05/2024" }, pngPhoto, "missing_date"},
		{"impossible date", func(in *models.ReportInput) { in.MissingDate = "2024-02-30" }, pngPhoto, "missing_date"},
		{"future date", func(in *models.ReportInput) { in.MissingDate = "2024-06-02" }, pngPhoto, "missing_date"},
		{"no photo", func(*models.ReportInput) {}, nil, "photo"},
		{"not an image", func(*models.ReportInput) {}, []byte("%PDF-1.4 not a photo"), "photo"},
		{"photo too large", func(*models.ReportInput) {}, append(append([]byte{}, pngPhoto...), make([]byte, 10<<20)...), "photo"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, true)
			in := validInput("Ada")
			tc.mutate(&in)

			_, err := f.svc.SubmitReport(context.Background(), in, tc.photo, "user-1")
			require.Error(t, err)
			assert.True(t, errs.IsValidation(err))

			var e *errs.Error
			require.ErrorAs(t, err, &e)
			assert.Contains(t, e.Fields, tc.field)

			f.blobs.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
			reports, err := f.svc.ListReports(context.Background(), models.ReportFilter{})
			require.NoError(t, err)
			assert.Empty(t, reports)
		})
	}
}

func TestSubmitReport_MissingDateTodayIsAccepted(t *testing.T) {
	f := newFixture(t, false)
	f.blobs.On("Upload", mock.Anything, pngPhoto, "image/png").Return("u", nil)

	in := validInput("Ada")
	in.MissingDate = "2024-06-01"
	_, err := f.svc.SubmitReport(context.Background(), in, pngPhoto, "")
	assert.NoError(t, err)
}

func TestSubmitReport_StorageError(t *testing.T) {
	f := newFixture(t, true)
	f.blobs.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("s3 down"))

	_, err := f.svc.SubmitReport(context.Background(), validInput("Ada"), pngPhoto, "user-1")
	assert.True(t, errs.IsStorage(err))

	reports, err := f.svc.ListReports(context.Background(), models.ReportFilter{})
	require.NoError(t, err)
	assert.Empty(t, reports)
	f.notifier.AssertNotCalled(t, "ReportPending", mock.Anything, mock.Anything)
}

func TestSubmitReport_PersistenceError(t *testing.T) {
	blobs := new(mockBlobStore)
	blobs.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return("https://cdn.test/x", nil).Once()
	store := failingCreateStore{db.NewLocalStore(localstore.NewMemory())}
	svc := NewReportService(store, blobs, nil, testConfig())

	_, err := svc.SubmitReport(context.Background(), validInput("Ada"), pngPhoto, "user-1")
	assert.True(t, errs.IsPersistence(err))
	blobs.AssertExpectations(t)
}

func TestSubmitReport_NotificationFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, true)
	f.blobs.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return("u", nil)
	f.notifier.On("ReportPending", mock.Anything, mock.Anything).Return(errors.New("mailgun down"))

	id, err := f.svc.SubmitReport(context.Background(), validInput("Ada"), pngPhoto, "user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestModeration_ApproveMovesBetweenLists(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	id := f.submit(t, "Ada", "user-1")

	pending, err := f.svc.ListReports(ctx, models.PendingOnly())
	require.NoError(t, err)
	assert.Equal(t, []string{id}, ids(pending))

	require.NoError(t, f.svc.SetModerationStatus(ctx, id, models.StatusApproved))

	approved, err := f.svc.ListReports(ctx, models.ApprovedOnly())
	require.NoError(t, err)
	assert.Equal(t, []string{id}, ids(approved))

	pending, err = f.svc.ListReports(ctx, models.PendingOnly())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestModeration_Transitions(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	id := f.submit(t, "Ada", "user-1")

	err := f.svc.SetModerationStatus(ctx, id, models.StatusPending)
	assert.True(t, errs.IsValidation(err))

	require.NoError(t, f.svc.SetModerationStatus(ctx, id, models.StatusRejected))
	// same status again is a no-op
	assert.NoError(t, f.svc.SetModerationStatus(ctx, id, models.StatusRejected))

	err = f.svc.SetModerationStatus(ctx, id, models.StatusApproved)
	assert.True(t, errs.IsValidation(err))

	err = f.svc.SetModerationStatus(ctx, "unknown", models.StatusApproved)
	assert.True(t, errs.IsNotFound(err))
}

func TestToggleLike(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	id := f.submit(t, "Ada", "user-1")

	res, err := f.svc.ToggleLike(ctx, id, "clientA")
	require.NoError(t, err)
	assert.Equal(t, models.LikeResult{Liked: true, Count: 1}, res)

	res, err = f.svc.ToggleLike(ctx, id, "clientA")
	require.NoError(t, err)
	assert.Equal(t, models.LikeResult{Liked: false, Count: 0}, res)

	_, err = f.svc.ToggleLike(ctx, id, "  ")
	assert.True(t, errs.IsValidation(err))

	_, err = f.svc.ToggleLike(ctx, "unknown", "clientA")
	assert.True(t, errs.IsNotFound(err))
}

func TestToggleLike_ConcurrentDistinctClients(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	id := f.submit(t, "Ada", "user-1")

	var wg sync.WaitGroup
	for _, c := range []string{"clientA", "clientB"} {
		wg.Add(1)
		go func(c string) {
			defer wg.Done()
			_, err := f.svc.ToggleLike(ctx, id, c)
			assert.NoError(t, err)
		}(c)
	}
	wg.Wait()

	r, err := f.svc.GetReport(ctx, id)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"clientA", "clientB"}, r.Likes)
}

func TestComments(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	id := f.submit(t, "Ada", "user-1")

	_, err := f.svc.AddComment(ctx, id, "   ", "seen her")
	assert.True(t, errs.IsValidation(err))
	_, err = f.svc.AddComment(ctx, id, "Tolu", "\t\n")
	assert.True(t, errs.IsValidation(err))
	_, err = f.svc.AddComment(ctx, "unknown", "Tolu", "seen her")
	assert.True(t, errs.IsNotFound(err))

	comments, err := f.svc.ListComments(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, comments)

	first, err := f.svc.AddComment(ctx, id, " Tolu ", " first sighting ")
	require.NoError(t, err)
	second, err := f.svc.AddComment(ctx, id, "Emeka", "second sighting")
	require.NoError(t, err)

	comments, err = f.svc.ListComments(ctx, id)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, second, comments[0].ID)
	assert.Equal(t, first, comments[1].ID)
	assert.Equal(t, "Tolu", comments[1].AuthorName)
	assert.Equal(t, "first sighting", comments[1].Message)

	r, err := f.svc.GetReport(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, r.Likes)
}

func TestListReports_OwnedByReporterNewestFirst(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	var mine []string
	for i := 0; i < 4; i++ {
		mine = append(mine, f.submit(t, fmt.Sprintf("mine-%d", i), "user-1"))
		f.submit(t, fmt.Sprintf("other-%d", i), "user-2")
	}

	owned, err := f.svc.ListReports(ctx, models.OwnedBy("user-1"))
	require.NoError(t, err)
	assert.Equal(t, []string{mine[3], mine[2], mine[1], mine[0]}, ids(owned))

	_, err = f.svc.ListReports(ctx, models.ReportFilter{Visibility: models.VisibilityOwned})
	assert.True(t, errs.IsValidation(err))
}

func TestListReports_TiesKeepInsertionOrder(t *testing.T) {
	store := db.NewLocalStore(localstore.NewMemory())
	blobs := new(mockBlobStore)
	blobs.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return("u", nil)
	fixed := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	svc := NewReportService(store, blobs, nil, testConfig(), WithClock(func() time.Time { return fixed }))

	var want []string
	for _, name := range []string{"a", "b", "c"} {
		id, err := svc.SubmitReport(context.Background(), validInput(name), pngPhoto, "")
		require.NoError(t, err)
		want = append(want, id)
	}

	got, err := svc.ListReports(context.Background(), models.ApprovedOnly())
	require.NoError(t, err)
	assert.Equal(t, want, ids(got))
}

func TestListReports_SearchAndLimit(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	ada := f.submit(t, "Ada Obi", "")
	f.submit(t, "Bola Ade", "")
	f.submit(t, "Chika", "")

	found, err := f.svc.ListReports(ctx, models.ReportFilter{Visibility: models.VisibilityApproved, Query: "OBI"})
	require.NoError(t, err)
	assert.Equal(t, []string{ada}, ids(found))

	found, err = f.svc.ListReports(ctx, models.ReportFilter{Visibility: models.VisibilityApproved, Query: "tejuosho"})
	require.NoError(t, err)
	assert.Len(t, found, 3)

	limited, err := f.svc.ListReports(ctx, models.ReportFilter{Visibility: models.VisibilityApproved, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestRecordPoliceNotification(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	id := f.submit(t, "Ada", "user-1")

	err := f.svc.RecordPoliceNotification(ctx, id, models.PoliceStation{Name: "Ikeja"}, "")
	assert.True(t, errs.IsValidation(err))

	station := models.PoliceStation{Name: "Ikeja", Phone: "112", Address: "Obafemi Awolowo Way"}
	require.NoError(t, f.svc.RecordPoliceNotification(ctx, id, station, "CR-42"))
	require.NoError(t, f.svc.RecordPoliceNotification(ctx, id, station, "CR-42"))

	r, err := f.svc.GetReport(ctx, id)
	require.NoError(t, err)
	assert.True(t, r.PoliceNotified)
	assert.Equal(t, station, r.PoliceStation)
	assert.Equal(t, "CR-42", r.CaseReferenceID)

	other := models.PoliceStation{Name: "Yaba", Phone: "199"}
	require.NoError(t, f.svc.RecordPoliceNotification(ctx, id, other, ""))
	r, err = f.svc.GetReport(ctx, id)
	require.NoError(t, err)
	assert.True(t, r.PoliceNotified)
	assert.Equal(t, other, r.PoliceStation)

	err = f.svc.RecordPoliceNotification(ctx, "unknown", station, "")
	assert.True(t, errs.IsNotFound(err))
}

func TestSetDisposition(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	id := f.submit(t, "Ada", "user-1")

	require.NoError(t, f.svc.SetDisposition(ctx, id, models.DispositionFound))
	r, err := f.svc.GetReport(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.DispositionFound, r.Disposition)
	assert.Equal(t, models.StatusPending, r.ModerationStatus)

	assert.True(t, errs.IsValidation(f.svc.SetDisposition(ctx, id, "lost")))
	assert.True(t, errs.IsNotFound(f.svc.SetDisposition(ctx, "unknown", models.DispositionFound)))
}

func TestShareText(t *testing.T) {
	f := newFixture(t, false)
	id := f.submit(t, "Ada Obi", "")

	text, err := f.svc.ShareText(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Missing: Ada Obi\nLast seen: Tejuosho Market\nDate: 2024-05-01", text)
}

func ids(reports []models.Report) []string {
	out := make([]string, 0, len(reports))
	for _, r := range reports {
		out = append(out, r.ID)
	}
	return out
}
