package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aniiishetty/event/internal/api/api"
	"github.com/aniiishetty/event/internal/model"
	"github.com/aniiishetty/event/internal/repo"
	"github.com/aniiishetty/event/internal/service"
)

func TestMain(m *testing.M) {
	zlog.Init()
	os.Exit(m.Run())
}

// fakeRepo is an in-memory Repository used to drive the intake and listing
// handlers without postgres.
type fakeRepo struct {
	colleges    map[int]model.College
	nextCollege int
	regs        []model.Registration
	nextReg     int
	nextEvent   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		colleges:    make(map[int]model.College),
		nextCollege: 1,
		nextReg:     1,
		nextEvent:   1,
	}
}

func (f *fakeRepo) addCollege(name string) int {
	id := f.nextCollege
	f.nextCollege++
	f.colleges[id] = model.College{ID: id, Name: name}
	return id
}

func (f *fakeRepo) Ping(ctx context.Context) error { return nil }

func (f *fakeRepo) CreateCollege(ctx context.Context, name string) (int, error) {
	for _, c := range f.colleges {
		if c.Name == name {
			return 0, repo.ErrDuplicateCollege
		}
	}
	return f.addCollege(name), nil
}

func (f *fakeRepo) GetCollegeByID(ctx context.Context, id int) (*model.College, error) {
	c, ok := f.colleges[id]
	if !ok {
		return nil, repo.ErrCollegeNotFound
	}
	return &c, nil
}

func (f *fakeRepo) GetOrCreateCollegeByName(ctx context.Context, name string) (*model.College, error) {
	for _, c := range f.colleges {
		if c.Name == name {
			return &c, nil
		}
	}
	id := f.addCollege(name)
	c := f.colleges[id]
	return &c, nil
}

func (f *fakeRepo) SearchColleges(ctx context.Context, search string, limit, offset int) ([]model.College, error) {
	var out []model.College
	for _, c := range f.colleges {
		if search == "" || strings.Contains(strings.ToLower(c.Name), strings.ToLower(search)) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) CollegeHasRegistration(ctx context.Context, collegeID int) (bool, error) {
	for _, r := range f.regs {
		if r.CollegeID != nil && *r.CollegeID == collegeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	for _, r := range f.regs {
		if r.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) CreateRegistrationTx(ctx context.Context, reg *model.Registration) (int, int, error) {
	if exists, _ := f.EmailExists(ctx, reg.Email); exists {
		return 0, 0, repo.ErrDuplicateEmail
	}
	if reg.CollegeID != nil {
		if taken, _ := f.CollegeHasRegistration(ctx, *reg.CollegeID); taken {
			return 0, 0, repo.ErrCollegeTaken
		}
	}
	stored := *reg
	stored.ID = f.nextReg
	stored.EventID = f.nextEvent
	f.nextReg++
	f.nextEvent++
	f.regs = append(f.regs, stored)
	return stored.ID, stored.EventID, nil
}

func (f *fakeRepo) GetRegistrationByID(ctx context.Context, id int) (*model.Registration, error) {
	for _, r := range f.regs {
		if r.ID == id {
			if r.CollegeID != nil {
				r.CollegeName = f.colleges[*r.CollegeID].Name
			}
			return &r, nil
		}
	}
	return nil, repo.ErrRegistrationNotFound
}

func (f *fakeRepo) ListRegistrations(ctx context.Context, search string, limit, offset int) ([]model.Registration, error) {
	var out []model.Registration
	for _, r := range f.regs {
		if search != "" && !strings.Contains(strings.ToLower(r.Name), strings.ToLower(search)) {
			continue
		}
		r.HasPaper = len(r.ResearchPaper) > 0
		r.Photo = nil
		r.ResearchPaper = nil
		if r.CollegeID != nil {
			r.CollegeName = f.colleges[*r.CollegeID].Name
		}
		out = append(out, r)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) ListRegistrationsWithPhotos(ctx context.Context) ([]model.Registration, error) {
	out := make([]model.Registration, len(f.regs))
	copy(out, f.regs)
	return out, nil
}

func (f *fakeRepo) MigrateUp(dir string) error   { return nil }
func (f *fakeRepo) MigrateDown(dir string) error { return nil }

type fakePublisher struct {
	published [][]byte
	err       error
}

func (p *fakePublisher) Publish(message []byte, delaySeconds int) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, message)
	return nil
}

type fakeRenderer struct {
	out []byte
	err error
}

func (r *fakeRenderer) RenderRoster(ctx context.Context, regs []model.Registration) ([]byte, error) {
	return r.out, r.err
}

type testEnv struct {
	repo      *fakeRepo
	publisher *fakePublisher
	renderer  *fakeRenderer
	router    *ginext.Engine
}

func newTestEnv(t *testing.T, maxPhotoBytes int64) *testEnv {
	t.Helper()
	env := &testEnv{
		repo:      newFakeRepo(),
		publisher: &fakePublisher{},
		renderer:  &fakeRenderer{out: []byte("%PDF-1.4 fake")},
	}
	log := zerolog.Nop()
	svc := service.NewService(env.repo, &log, env.publisher, env.renderer, maxPhotoBytes)
	env.router = api.NewRouters(&api.Routers{Service: svc})
	return env
}

func registerBody(t *testing.T, fields map[string]string, photo, paper []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if photo != nil {
		fw, err := w.CreateFormFile("photo", "photo.jpg")
		require.NoError(t, err)
		_, err = fw.Write(photo)
		require.NoError(t, err)
	}
	if paper != nil {
		fw, err := w.CreateFormFile("researchPaper", "paper.pdf")
		require.NoError(t, err)
		_, err = fw.Write(paper)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func (env *testEnv) register(t *testing.T, fields map[string]string, photo, paper []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := registerBody(t, fields, photo, paper)
	req := httptest.NewRequest(http.MethodPost, "/api/registrations/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func principalFields(collegeID int, email string) map[string]string {
	return map[string]string{
		"name":        "A. Rao",
		"designation": "Principal",
		"collegeId":   fmt.Sprint(collegeID),
		"phone":       "555-0100",
		"email":       email,
		"reason":      model.ReasonResearchPaper,
	}
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	msg, _ := body["message"].(string)
	return msg
}

func TestRegisterSuccess(t *testing.T) {
	env := newTestEnv(t, 5<<20)
	collegeID := env.repo.addCollege("Sunrise College")

	photo := bytes.Repeat([]byte{0xab}, 200<<10)
	paper := bytes.Repeat([]byte{0xcd}, 1<<20)
	rec := env.register(t, principalFields(collegeID, "a@x.edu"), photo, paper)

	require.Equal(t, 201, rec.Code, rec.Body.String())
	assert.Equal(t, "User registered successfully", message(t, rec))

	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.EqualValues(t, 1, created["event_id"])

	require.Len(t, env.repo.regs, 1)
	stored := env.repo.regs[0]
	require.NotNil(t, stored.CollegeID)
	assert.Equal(t, collegeID, *stored.CollegeID)
	assert.Equal(t, photo, stored.Photo)
	assert.Equal(t, paper, stored.ResearchPaper)
	assert.Equal(t, 1, stored.EventID)

	// Notification job published after the successful response.
	require.Len(t, env.publisher.published, 1)
	var msg map[string]any
	require.NoError(t, json.Unmarshal(env.publisher.published[0], &msg))
	assert.EqualValues(t, stored.ID, msg["registration_id"])
}

func TestRegisterMissingFieldsNoWrite(t *testing.T) {
	env := newTestEnv(t, 5<<20)
	collegeID := env.repo.addCollege("Sunrise College")

	for _, missing := range []string{"name", "designation", "phone", "email", "reason"} {
		fields := principalFields(collegeID, "a@x.edu")
		delete(fields, missing)
		rec := env.register(t, fields, []byte("img"), nil)
		assert.Equal(t, 400, rec.Code, "missing %s", missing)
	}

	// Missing photo is rejected too.
	rec := env.register(t, principalFields(collegeID, "a@x.edu"), nil, nil)
	assert.Equal(t, 400, rec.Code)

	assert.Empty(t, env.repo.regs)
	assert.Empty(t, env.publisher.published)
}

func TestRegisterChairPersonWithoutCollegeID(t *testing.T) {
	env := newTestEnv(t, 5<<20)

	fields := principalFields(0, "a@x.edu")
	fields["designation"] = "Chair Person"
	delete(fields, "collegeId")
	rec := env.register(t, fields, []byte("img"), nil)

	require.Equal(t, 400, rec.Code)
	assert.Equal(t, "College ID is required for this designation", message(t, rec))
	assert.Empty(t, env.repo.regs)
}

func TestRegisterUnknownCollegeID(t *testing.T) {
	env := newTestEnv(t, 5<<20)

	rec := env.register(t, principalFields(99, "a@x.edu"), []byte("img"), nil)

	require.Equal(t, 400, rec.Code)
	assert.Equal(t, "Invalid college id", message(t, rec))
	assert.Empty(t, env.repo.regs)
}

func TestRegisterCouncilMemberSkipsCollege(t *testing.T) {
	env := newTestEnv(t, 5<<20)

	fields := map[string]string{
		"name":        "C. Member",
		"designation": "Council Member",
		"phone":       "555-0101",
		"email":       "c@x.edu",
		"reason":      model.ReasonTextbook,
	}
	rec := env.register(t, fields, []byte("img"), nil)

	require.Equal(t, 201, rec.Code, rec.Body.String())
	require.Len(t, env.repo.regs, 1)
	stored := env.repo.regs[0]
	assert.Nil(t, stored.CollegeID)
	require.NotNil(t, stored.CommitteeMember)
	assert.Equal(t, model.DefaultCommitteeLabel, *stored.CommitteeMember)
	assert.Empty(t, env.repo.colleges, "no college rows should be created")
}

func TestRegisterCouncilMemberKeepsCommitteeLabel(t *testing.T) {
	env := newTestEnv(t, 5<<20)

	fields := map[string]string{
		"name":            "C. Member",
		"designation":     "Council Member",
		"committeeMember": "Finance",
		"phone":           "555-0101",
		"email":           "c@x.edu",
		"reason":          model.ReasonTextbook,
	}
	rec := env.register(t, fields, []byte("img"), nil)

	require.Equal(t, 201, rec.Code)
	require.NotNil(t, env.repo.regs[0].CommitteeMember)
	assert.Equal(t, "Finance", *env.repo.regs[0].CommitteeMember)
}

func TestRegisterViceChancellorGetOrCreate(t *testing.T) {
	env := newTestEnv(t, 5<<20)
	env.repo.addCollege("Sunrise College")

	vcFields := func(college, email string) map[string]string {
		return map[string]string{
			"name":        "V. Chan",
			"designation": "Vice-Chancellor",
			"collegeName": college,
			"phone":       "555-0102",
			"email":       email,
			"reason":      model.ReasonInternship,
		}
	}

	// Existing name is reused, no new row.
	rec := env.register(t, vcFields("Sunrise College", "v1@x.edu"), []byte("img"), nil)
	require.Equal(t, 201, rec.Code, rec.Body.String())
	assert.Len(t, env.repo.colleges, 1)

	// New name creates exactly one row.
	rec = env.register(t, vcFields("Moonrise College", "v2@x.edu"), []byte("img"), nil)
	require.Equal(t, 201, rec.Code, rec.Body.String())
	assert.Len(t, env.repo.colleges, 2)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t, 5<<20)
	collegeID := env.repo.addCollege("Sunrise College")
	otherID := env.repo.addCollege("Moonrise College")

	rec := env.register(t, principalFields(collegeID, "a@x.edu"), []byte("img"), nil)
	require.Equal(t, 201, rec.Code)

	fields := principalFields(otherID, "a@x.edu")
	rec = env.register(t, fields, []byte("img"), nil)

	require.Equal(t, 400, rec.Code)
	assert.Equal(t, "Email already exists", message(t, rec))
	assert.Len(t, env.repo.regs, 1, "registration count unchanged")
}

func TestRegisterCollegeAlreadyTaken(t *testing.T) {
	env := newTestEnv(t, 5<<20)
	collegeID := env.repo.addCollege("Sunrise College")

	rec := env.register(t, principalFields(collegeID, "a@x.edu"), []byte("img"), nil)
	require.Equal(t, 201, rec.Code)

	rec = env.register(t, principalFields(collegeID, "b@x.edu"), []byte("img"), nil)
	require.Equal(t, 400, rec.Code)
	assert.Contains(t, message(t, rec), "already registered by another user")
	assert.Len(t, env.repo.regs, 1)
}

func TestRegisterPhotoTooLarge(t *testing.T) {
	env := newTestEnv(t, 16)
	collegeID := env.repo.addCollege("Sunrise College")

	rec := env.register(t, principalFields(collegeID, "a@x.edu"), bytes.Repeat([]byte{1}, 64), nil)

	require.Equal(t, 400, rec.Code)
	assert.Equal(t, "Photo too large", message(t, rec))
	assert.Empty(t, env.repo.regs)
}

func TestEventIDsMonotonic(t *testing.T) {
	env := newTestEnv(t, 5<<20)
	first := env.repo.addCollege("Sunrise College")
	second := env.repo.addCollege("Moonrise College")

	rec := env.register(t, principalFields(first, "a@x.edu"), []byte("img"), nil)
	require.Equal(t, 201, rec.Code)
	rec = env.register(t, principalFields(second, "b@x.edu"), []byte("img"), nil)
	require.Equal(t, 201, rec.Code)

	require.Len(t, env.repo.regs, 2)
	assert.Greater(t, env.repo.regs[1].EventID, env.repo.regs[0].EventID)
}

func TestRegisterPublishFailureDoesNotAffectResponse(t *testing.T) {
	env := newTestEnv(t, 5<<20)
	collegeID := env.repo.addCollege("Sunrise College")
	env.publisher.err = errors.New("broker down")

	rec := env.register(t, principalFields(collegeID, "a@x.edu"), []byte("img"), nil)

	require.Equal(t, 201, rec.Code)
	assert.Len(t, env.repo.regs, 1)
}

func TestAddCollege(t *testing.T) {
	env := newTestEnv(t, 5<<20)

	do := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/colleges/add", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		return rec
	}

	rec := do(`{"name": "Sunrise College"}`)
	require.Equal(t, 201, rec.Code)

	rec = do(`{"name": "Sunrise College"}`)
	require.Equal(t, 400, rec.Code)
	assert.Contains(t, rec.Body.String(), "College already exists")

	rec = do(`{"name": ""}`)
	require.Equal(t, 400, rec.Code)
}

func TestGetCollegesSearch(t *testing.T) {
	env := newTestEnv(t, 5<<20)
	env.repo.addCollege("Sunrise College")
	env.repo.addCollege("Moonrise Institute")

	req := httptest.NewRequest(http.MethodGet, "/api/colleges?search=sunrise", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	var colleges []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &colleges))
	require.Len(t, colleges, 1)
	assert.Equal(t, "Sunrise College", colleges[0]["name"])
}

func TestCheckCollege(t *testing.T) {
	env := newTestEnv(t, 5<<20)
	collegeID := env.repo.addCollege("Sunrise College")

	check := func() map[string]any {
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/colleges/check-college/%d", collegeID), nil)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		require.Equal(t, 200, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return body
	}

	assert.Equal(t, false, check()["isRegistered"])

	rec := env.register(t, principalFields(collegeID, "a@x.edu"), []byte("img"), nil)
	require.Equal(t, 201, rec.Code)

	assert.Equal(t, true, check()["isRegistered"])
}

func TestGetRegistrationsJoinsCollegeName(t *testing.T) {
	env := newTestEnv(t, 5<<20)
	collegeID := env.repo.addCollege("Sunrise College")
	rec := env.register(t, principalFields(collegeID, "a@x.edu"), []byte("img"), bytes.Repeat([]byte{2}, 8))
	require.Equal(t, 201, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/registrations", nil)
	listRec := httptest.NewRecorder()
	env.router.ServeHTTP(listRec, req)

	require.Equal(t, 200, listRec.Code)
	var regs []map[string]any
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &regs))
	require.Len(t, regs, 1)
	assert.Equal(t, "Sunrise College", regs[0]["college_name"])
	assert.Equal(t, true, regs[0]["has_research_paper"])
	assert.NotContains(t, listRec.Body.String(), "photo")
}

func TestRosterPDF(t *testing.T) {
	env := newTestEnv(t, 5<<20)

	// Empty store: 404, not an empty PDF.
	req := httptest.NewRequest(http.MethodGet, "/api/registrations/pdf", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, 404, rec.Code)
	assert.Equal(t, "No registrations found", message(t, rec))

	collegeID := env.repo.addCollege("Sunrise College")
	regRec := env.register(t, principalFields(collegeID, "a@x.edu"), []byte("img"), nil)
	require.Equal(t, 201, regRec.Code)

	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/registrations/pdf", nil))
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Equal(t, env.renderer.out, rec.Body.Bytes())
}

func TestRosterPDFRendererFailure(t *testing.T) {
	env := newTestEnv(t, 5<<20)
	env.renderer.err = errors.New("browser crashed")

	collegeID := env.repo.addCollege("Sunrise College")
	rec := env.register(t, principalFields(collegeID, "a@x.edu"), []byte("img"), nil)
	require.Equal(t, 201, rec.Code)

	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/registrations/pdf", nil))
	assert.Equal(t, 500, rec.Code)
}
