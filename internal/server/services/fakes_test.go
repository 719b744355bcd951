package services

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/bugsheriff/internal/common"
	"github.com/dmitrijs2005/bugsheriff/internal/dbx"
	"github.com/dmitrijs2005/bugsheriff/internal/logging"
	"github.com/dmitrijs2005/bugsheriff/internal/server/models"
	orphansrepo "github.com/dmitrijs2005/bugsheriff/internal/server/repositories/orphans"
	programsrepo "github.com/dmitrijs2005/bugsheriff/internal/server/repositories/programs"
	refreshtokensrepo "github.com/dmitrijs2005/bugsheriff/internal/server/repositories/refreshtokens"
	reportsrepo "github.com/dmitrijs2005/bugsheriff/internal/server/repositories/reports"
	usersrepo "github.com/dmitrijs2005/bugsheriff/internal/server/repositories/users"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func discardLogger() logging.Logger {
	return logging.NewJSONSlogLogger(io.Discard, "error")
}

// --- users ---

type fakeUsersRepo struct {
	byName map[string]*models.User
	nextID int64

	createErr error
	getErr    error
	updateErr error
}

func newFakeUsersRepo(users ...*models.User) *fakeUsersRepo {
	f := &fakeUsersRepo{byName: map[string]*models.User{}}
	for _, u := range users {
		f.nextID++
		if u.ID == 0 {
			u.ID = f.nextID
		}
		f.byName[u.UserName] = u
	}
	return f
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.byName[u.UserName]; ok {
		return nil, common.ErrorAlreadyExists
	}
	f.nextID++
	u.ID = f.nextID
	cp := *u
	f.byName[u.UserName] = &cp
	return u, nil
}

func (f *fakeUsersRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byName[username]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byName {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) UpdatePassword(ctx context.Context, userID int64, hash []byte) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	for _, u := range f.byName {
		if u.ID == userID {
			u.PasswordHash = hash
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f *fakeUsersRepo) UpdateProfile(ctx context.Context, user *models.User) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	u, ok := f.byName[user.UserName]
	if !ok {
		return common.ErrorNotFound
	}
	*u = *user
	return nil
}

// --- refresh tokens ---

type fakeRefreshRepo struct {
	mu     sync.Mutex
	tokens map[string]*models.RefreshToken

	findErr   error
	delErr    error
	createErr error
	purgeErr  error

	// afterFind runs after a successful Find, outside the lock.
	afterFind func()
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{tokens: map[string]*models.RefreshToken{}}
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID int64, token string, validity time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	f.mu.Lock()
	if f.findErr != nil {
		f.mu.Unlock()
		return nil, f.findErr
	}
	t, ok := f.tokens[token]
	hook := f.afterFind
	f.mu.Unlock()

	if !ok {
		return nil, common.ErrorNotFound
	}
	if hook != nil {
		hook()
	}
	return t, nil
}

func (f *fakeRefreshRepo) Delete(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	if _, ok := f.tokens[token]; !ok {
		return common.ErrorNotFound
	}
	delete(f.tokens, token)
	return nil
}

func (f *fakeRefreshRepo) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return 0, f.delErr
	}
	var n int64
	for k, t := range f.tokens {
		if t.UserID == userID {
			delete(f.tokens, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeRefreshRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.purgeErr != nil {
		return 0, f.purgeErr
	}
	var n int64
	for k, t := range f.tokens {
		if t.Expires.Before(cutoff) {
			delete(f.tokens, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeRefreshRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tokens)
}

// --- programs ---

type fakeProgramsRepo struct {
	items  map[int64]*models.Program
	nextID int64

	createErr error
	getErr    error
	listErr   error
	updateErr error
	deleteErr error
}

func newFakeProgramsRepo(programs ...*models.Program) *fakeProgramsRepo {
	f := &fakeProgramsRepo{items: map[int64]*models.Program{}}
	for _, p := range programs {
		f.nextID++
		if p.ID == 0 {
			p.ID = f.nextID
		}
		f.items[p.ID] = p
	}
	return f
}

func (f *fakeProgramsRepo) Create(ctx context.Context, p *models.Program) (*models.Program, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	p.ID = f.nextID
	cp := *p
	f.items[p.ID] = &cp
	return p, nil
}

func (f *fakeProgramsRepo) Get(ctx context.Context, id int64) (*models.Program, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProgramsRepo) List(ctx context.Context, openOnly bool) ([]*models.Program, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*models.Program, 0)
	for _, p := range f.items {
		if openOnly && p.Status != common.ProgramStatusOpen {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeProgramsRepo) Update(ctx context.Context, p *models.Program) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.items[p.ID]; !ok {
		return common.ErrorNotFound
	}
	cp := *p
	f.items[p.ID] = &cp
	return nil
}

func (f *fakeProgramsRepo) Delete(ctx context.Context, id int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.items[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.items, id)
	return nil
}

// --- reports ---

type fakeReportsRepo struct {
	items  map[int64]*models.Report
	nextID int64

	// lookups used by the joined list queries
	programNames map[int64]string
	ibans        map[int64]string

	createErr error
	getErr    error
	listErr   error
	updateErr error
	deleteErr error
}

func newFakeReportsRepo(reports ...*models.Report) *fakeReportsRepo {
	f := &fakeReportsRepo{
		items:        map[int64]*models.Report{},
		programNames: map[int64]string{},
		ibans:        map[int64]string{},
	}
	for _, r := range reports {
		f.nextID++
		if r.ID == 0 {
			r.ID = f.nextID
		}
		f.items[r.ID] = r
	}
	return f
}

func (f *fakeReportsRepo) Create(ctx context.Context, r *models.Report) (*models.Report, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	r.ID = f.nextID
	cp := *r
	f.items[r.ID] = &cp
	return r, nil
}

func (f *fakeReportsRepo) Get(ctx context.Context, id int64) (*models.Report, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	r, ok := f.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeReportsRepo) GetByBlobName(ctx context.Context, name string) (*models.Report, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, r := range f.items {
		if r.BlobName == name {
			cp := *r
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeReportsRepo) sorted(keep func(*models.Report) bool) []*models.Report {
	out := make([]*models.Report, 0)
	for _, r := range f.items {
		if !keep(r) {
			continue
		}
		cp := *r
		cp.ProgramName = f.programNames[r.ProgramID]
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeReportsRepo) ListByUser(ctx context.Context, userID int64) ([]*models.Report, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.sorted(func(r *models.Report) bool { return r.UserID == userID }), nil
}

func (f *fakeReportsRepo) ListAll(ctx context.Context) ([]*models.Report, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := f.sorted(func(*models.Report) bool { return true })
	for _, r := range out {
		r.OwnerIBAN = f.ibans[r.UserID]
	}
	return out, nil
}

func (f *fakeReportsRepo) Update(ctx context.Context, r *models.Report) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	cur, ok := f.items[r.ID]
	if !ok {
		return common.ErrorNotFound
	}
	cur.Status = r.Status
	cur.RewardAmount = r.RewardAmount
	return nil
}

func (f *fakeReportsRepo) DeleteByProgram(ctx context.Context, programID int64) ([]string, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	var names []string
	for _, r := range f.sorted(func(r *models.Report) bool { return r.ProgramID == programID }) {
		names = append(names, r.BlobName)
		delete(f.items, r.ID)
	}
	return names, nil
}

// --- orphans ---

type fakeOrphansRepo struct {
	mu    sync.Mutex
	items map[string]*models.OrphanedBlob

	createErr error
	listErr   error
}

func newFakeOrphansRepo() *fakeOrphansRepo {
	return &fakeOrphansRepo{items: map[string]*models.OrphanedBlob{}}
}

func (f *fakeOrphansRepo) Create(ctx context.Context, name, lastError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if cur, ok := f.items[name]; ok {
		cur.Attempts++
		cur.LastError = lastError
		return nil
	}
	f.items[name] = &models.OrphanedBlob{BlobName: name, CreatedAt: time.Now(), Attempts: 1, LastError: lastError}
	return nil
}

func (f *fakeOrphansRepo) List(ctx context.Context, limit int) ([]*models.OrphanedBlob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*models.OrphanedBlob
	for _, o := range f.items {
		cp := *o
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BlobName < out[j].BlobName })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeOrphansRepo) Delete(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, name)
	return nil
}

func (f *fakeOrphansRepo) MarkFailed(ctx context.Context, name, lastError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cur, ok := f.items[name]; ok {
		cur.Attempts++
		cur.LastError = lastError
	}
	return nil
}

func (f *fakeOrphansRepo) get(name string) (*models.OrphanedBlob, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.items[name]
	if !ok {
		return nil, false
	}
	cp := *o
	return &cp, true
}

// --- blob store ---

type fakeBlobStore struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	removed []string

	putErr    error
	openErr   error
	removeErr error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: map[string][]byte{}}
}

func (f *fakeBlobStore) Put(ctx context.Context, name string, r io.Reader) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.blobs[name] = b
	return nil
}

func (f *fakeBlobStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	b, ok := f.blobs[name]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *fakeBlobStore) Remove(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, name)
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.blobs, name)
	return nil
}

func (f *fakeBlobStore) setRemoveErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeErr = err
}

func (f *fakeBlobStore) has(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.blobs[name]
	return ok
}

// --- manager ---

type fakeRepoManager struct {
	u   *fakeUsersRepo
	r   *fakeRefreshRepo
	p   *fakeProgramsRepo
	rep *fakeReportsRepo
	o   *fakeOrphansRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		u:   newFakeUsersRepo(),
		r:   newFakeRefreshRepo(),
		p:   newFakeProgramsRepo(),
		rep: newFakeReportsRepo(),
		o:   newFakeOrphansRepo(),
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error           { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository { return m.r }
func (m *fakeRepoManager) Programs(db dbx.DBTX) programsrepo.Repository           { return m.p }
func (m *fakeRepoManager) Reports(db dbx.DBTX) reportsrepo.Repository             { return m.rep }
func (m *fakeRepoManager) Orphans(db dbx.DBTX) orphansrepo.Repository             { return m.o }
