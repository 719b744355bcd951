package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/bugsheriff/internal/common"
	"github.com/dmitrijs2005/bugsheriff/internal/logging"
	"github.com/dmitrijs2005/bugsheriff/internal/server/auth"
	"github.com/dmitrijs2005/bugsheriff/internal/server/config"
	"github.com/dmitrijs2005/bugsheriff/internal/server/models"
	"github.com/dmitrijs2005/bugsheriff/internal/server/services"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

var errBoom = errors.New("boom")

var (
	adminUser  = &models.User{ID: 1, UserName: common.AdminUserName, Role: common.RoleAdmin, IBAN: "LV00ADMIN"}
	hunterUser = &models.User{ID: 2, UserName: "hunter", Role: common.RoleUser, SecretQuestion: "pet?", SecretAnswer: "cat", IBAN: "LV00HUNT"}
)

type fakeUserService struct {
	users map[string]*models.User

	registered  []services.RegisterInput
	resetInput  *services.ResetPasswordInput
	profileUser string
	profileUpd  *services.ProfileUpdate

	err error
}

func newFakeUserService() *fakeUserService {
	return &fakeUserService{users: map[string]*models.User{
		adminUser.UserName:  adminUser,
		hunterUser.UserName: hunterUser,
	}}
}

func (f *fakeUserService) Register(ctx context.Context, in services.RegisterInput) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.registered = append(f.registered, in)
	return &models.User{ID: 10, UserName: in.Username, Role: common.RoleUser}, nil
}

func (f *fakeUserService) Login(ctx context.Context, username, password string) (*services.TokenPair, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.TokenPair{AccessToken: "access-" + username, RefreshToken: "refresh-" + username}, nil
}

func (f *fakeUserService) RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.TokenPair{AccessToken: "new-access", RefreshToken: "new-" + refreshToken}, nil
}

func (f *fakeUserService) ResetPassword(ctx context.Context, in services.ResetPasswordInput) error {
	if f.err != nil {
		return f.err
	}
	f.resetInput = &in
	return nil
}

func (f *fakeUserService) UpdateProfile(ctx context.Context, username string, upd services.ProfileUpdate) error {
	if f.err != nil {
		return f.err
	}
	f.profileUser = username
	f.profileUpd = &upd
	return nil
}

func (f *fakeUserService) GetProfile(ctx context.Context, username string) (*models.User, error) {
	return f.Resolve(ctx, username)
}

func (f *fakeUserService) Resolve(ctx context.Context, username string) (*models.User, error) {
	u, ok := f.users[username]
	if !ok {
		return nil, fmt.Errorf("%w: User not found.", common.ErrorNotFound)
	}
	return u, nil
}

type fakeProgramService struct {
	programs []*models.Program
	lastID   int64
	lastIn   services.ProgramInput
	deleted  []int64
	caller   *models.User
	err      error
}

func (f *fakeProgramService) List(ctx context.Context, caller *models.User) ([]*models.Program, error) {
	f.caller = caller
	return f.programs, f.err
}

func (f *fakeProgramService) Create(ctx context.Context, in services.ProgramInput) (*models.Program, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastIn = in
	return &models.Program{ID: 42}, nil
}

func (f *fakeProgramService) Update(ctx context.Context, id int64, in services.ProgramInput) (*models.Program, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastID = id
	f.lastIn = in
	return &models.Program{ID: id}, nil
}

func (f *fakeProgramService) Delete(ctx context.Context, id int64) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeReportService struct {
	reports []*models.Report
	files   map[string]string

	uploadProgram int64
	uploadFile    *services.UploadFile
	uploadContent string
	updateID      int64
	update        services.ReportUpdate

	err error
}

func (f *fakeReportService) Upload(ctx context.Context, caller *models.User, programID int64, file *services.UploadFile) (*models.Report, error) {
	f.uploadProgram = programID
	f.uploadFile = file
	if file != nil && file.Content != nil {
		b, _ := io.ReadAll(file.Content)
		f.uploadContent = string(b)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &models.Report{ID: 7, UserID: caller.ID, ProgramID: programID}, nil
}

func (f *fakeReportService) ListMine(ctx context.Context, caller *models.User) ([]*models.Report, error) {
	var out []*models.Report
	for _, r := range f.reports {
		if r.UserID == caller.ID {
			out = append(out, r)
		}
	}
	return out, f.err
}

func (f *fakeReportService) ListAll(ctx context.Context) ([]*models.Report, error) {
	return f.reports, f.err
}

func (f *fakeReportService) Update(ctx context.Context, id int64, upd services.ReportUpdate) (*models.Report, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.updateID = id
	f.update = upd
	return &models.Report{ID: id}, nil
}

func (f *fakeReportService) FetchOwn(ctx context.Context, caller *models.User, filename string) (io.ReadCloser, error) {
	for _, r := range f.reports {
		if r.BlobName == filename && r.UserID != caller.ID && !caller.IsAdmin() {
			return nil, fmt.Errorf("%w: You are not authorized to view this file", common.ErrorForbidden)
		}
	}
	return f.FetchAdmin(ctx, filename)
}

func (f *fakeReportService) FetchAdmin(ctx context.Context, filename string) (io.ReadCloser, error) {
	body, ok := f.files[filename]
	if !ok {
		return nil, fmt.Errorf("%w: File not found", common.ErrorNotFound)
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

type testServer struct {
	*HTTPServer
	users    *fakeUserService
	programs *fakeProgramService
	reports  *fakeReportService
	logs     *bytes.Buffer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		EndpointAddrHTTP: ":0",
		SecretKey:        testSecret,
		MaxUploadSize:    1 << 20,
		CORSAllowOrigins: []string{"http://localhost:3000"},
	}

	logs := &bytes.Buffer{}
	var l logging.Logger = logging.NewSlogLogger(slog.New(slog.NewJSONHandler(logs, nil)))

	ts := &testServer{
		users:    newFakeUserService(),
		programs: &fakeProgramService{},
		reports:  &fakeReportService{files: map[string]string{}},
		logs:     logs,
	}
	ts.HTTPServer = NewHTTPServer(cfg, l, ts.users, ts.programs, ts.reports)
	return ts
}

func tokenFor(t *testing.T, username string) string {
	t.Helper()
	tok, err := auth.GenerateToken(username, []byte(testSecret), time.Hour)
	require.NoError(t, err)
	return tok
}

// do sends a request with an optional JSON body and bearer token for user.
func (ts *testServer) do(t *testing.T, method, path string, body any, user *models.User) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			r = strings.NewReader(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			r = bytes.NewReader(data)
		}
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+tokenFor(t, user.UserName))
	}
	return ts.serve(req)
}

func (ts *testServer) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Message
}
