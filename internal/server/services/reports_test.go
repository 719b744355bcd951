package services

import (
	"context"
	"database/sql"
	"io"
	"strings"
	"testing"

	"github.com/dmitrijs2005/bugsheriff/internal/common"
	"github.com/dmitrijs2005/bugsheriff/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReportService(t *testing.T, db *sql.DB, rm *fakeRepoManager, store *fakeBlobStore) *ReportService {
	t.Helper()
	return NewReportService(db, rm, store, discardLogger())
}

func pdf(name string) *UploadFile {
	return &UploadFile{Filename: name, Content: strings.NewReader("%PDF-1.7")}
}

func seededReports() *fakeRepoManager {
	rm := newFakeRepoManager()
	rm.p = newFakeProgramsRepo(
		&models.Program{Name: "Web", Status: common.ProgramStatusOpen},
		&models.Program{Name: "Legacy", Status: common.ProgramStatusClosed},
	)
	return rm
}

func TestUpload_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := seededReports()
	store := newFakeBlobStore()
	s := newReportService(t, db, rm, store)

	r, err := s.Upload(context.Background(), hunter, 1, pdf("Finding.PDF"))
	require.NoError(t, err)

	assert.Equal(t, common.ReportStatusPending, r.Status)
	assert.Equal(t, 0.0, r.RewardAmount)
	assert.Equal(t, hunter.ID, r.UserID)
	assert.Equal(t, int64(1), r.ProgramID)
	assert.True(t, strings.HasSuffix(r.BlobName, ".pdf"))
	assert.NotContains(t, r.BlobName, "Finding")
	assert.True(t, store.has(r.BlobName))
	assert.Len(t, rm.rep.items, 1)
}

func TestUpload_Rejections(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	tests := []struct {
		name      string
		programID int64
		file      *UploadFile
		want      error
	}{
		{"unknown program", 9, pdf("a.pdf"), common.ErrorNotFound},
		{"closed program", 2, pdf("a.pdf"), common.ErrorValidation},
		{"no file", 1, nil, common.ErrorValidation},
		{"empty filename", 1, pdf(""), common.ErrorValidation},
		{"not a pdf", 1, pdf("a.docx"), common.ErrorValidation},
		{"pdf only in the middle", 1, pdf("a.pdf.exe"), common.ErrorValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rm := seededReports()
			store := newFakeBlobStore()
			s := newReportService(t, db, rm, store)

			_, err := s.Upload(context.Background(), hunter, tt.programID, tt.file)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, rm.rep.items)
			assert.Empty(t, store.blobs)
		})
	}
}

func TestUpload_InsertFailureRemovesFile(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := seededReports()
	rm.rep.createErr = errBoom{}
	store := newFakeBlobStore()
	s := newReportService(t, db, rm, store)

	_, err := s.Upload(context.Background(), hunter, 1, pdf("a.pdf"))
	assert.ErrorIs(t, err, errBoom{})
	assert.Empty(t, store.blobs)
	assert.Len(t, store.removed, 1)
}

func TestUpload_StoreFailure(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := seededReports()
	store := newFakeBlobStore()
	store.putErr = errBoom{}
	s := newReportService(t, db, rm, store)

	_, err := s.Upload(context.Background(), hunter, 1, pdf("a.pdf"))
	assert.ErrorIs(t, err, errBoom{})
	assert.Empty(t, rm.rep.items)
}

func TestListMineAndListAll(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := newFakeRepoManager()
	rm.rep = newFakeReportsRepo(
		&models.Report{UserID: hunter.ID, ProgramID: 1, BlobName: "a.pdf"},
		&models.Report{UserID: 300, ProgramID: 1, BlobName: "b.pdf"},
		&models.Report{UserID: hunter.ID, ProgramID: 2, BlobName: "c.pdf"},
	)
	rm.rep.programNames[1] = "Web"
	rm.rep.programNames[2] = "Mobile"
	rm.rep.ibans[300] = "DE00"
	s := newReportService(t, db, rm, newFakeBlobStore())

	mine, err := s.ListMine(context.Background(), hunter)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, r := range mine {
		assert.Equal(t, hunter.ID, r.UserID)
	}
	assert.Equal(t, "Web", mine[0].ProgramName)
	assert.Equal(t, "Mobile", mine[1].ProgramName)

	all, err := s.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "DE00", all[1].OwnerIBAN)

	none, err := s.ListMine(context.Background(), &models.User{ID: 999})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestReportUpdate(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	seed := func() *fakeRepoManager {
		rm := newFakeRepoManager()
		rm.rep = newFakeReportsRepo(&models.Report{UserID: hunter.ID, ProgramID: 1, BlobName: "a.pdf", Status: "Pending"})
		return rm
	}

	for _, amount := range []string{"12,50", "12.50"} {
		t.Run("reward "+amount, func(t *testing.T) {
			rm := seed()
			s := newReportService(t, db, rm, newFakeBlobStore())

			r, err := s.Update(context.Background(), 1, ReportUpdate{RewardAmount: &amount})
			require.NoError(t, err)
			assert.Equal(t, 12.5, r.RewardAmount)
			assert.Equal(t, "Pending", rm.rep.items[1].Status)
			assert.Equal(t, 12.5, rm.rep.items[1].RewardAmount)
		})
	}

	t.Run("status", func(t *testing.T) {
		rm := seed()
		s := newReportService(t, db, rm, newFakeBlobStore())

		_, err := s.Update(context.Background(), 1, ReportUpdate{Status: strp("Accepted")})
		require.NoError(t, err)
		assert.Equal(t, "Accepted", rm.rep.items[1].Status)
	})

	t.Run("bad status", func(t *testing.T) {
		s := newReportService(t, db, seed(), newFakeBlobStore())
		_, err := s.Update(context.Background(), 1, ReportUpdate{Status: strp("Paid")})
		assert.ErrorIs(t, err, common.ErrorValidation)
	})

	t.Run("bad reward", func(t *testing.T) {
		s := newReportService(t, db, seed(), newFakeBlobStore())
		_, err := s.Update(context.Background(), 1, ReportUpdate{RewardAmount: strp("lots")})
		assert.ErrorIs(t, err, common.ErrorValidation)
	})

	t.Run("not found", func(t *testing.T) {
		s := newReportService(t, db, seed(), newFakeBlobStore())
		_, err := s.Update(context.Background(), 42, ReportUpdate{Status: strp("Accepted")})
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})
}

func TestFetchOwn(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := newFakeRepoManager()
	rm.rep = newFakeReportsRepo(&models.Report{UserID: hunter.ID, ProgramID: 1, BlobName: "a.pdf"})
	store := newFakeBlobStore()
	store.blobs["a.pdf"] = []byte("%PDF")
	s := newReportService(t, db, rm, store)

	t.Run("owner", func(t *testing.T) {
		rc, err := s.FetchOwn(context.Background(), hunter, "a.pdf")
		require.NoError(t, err)
		b, _ := io.ReadAll(rc)
		assert.Equal(t, "%PDF", string(b))
	})

	t.Run("admin", func(t *testing.T) {
		_, err := s.FetchOwn(context.Background(), admin, "a.pdf")
		assert.NoError(t, err)
	})

	t.Run("other user", func(t *testing.T) {
		_, err := s.FetchOwn(context.Background(), &models.User{ID: 300, Role: common.RoleUser}, "a.pdf")
		assert.ErrorIs(t, err, common.ErrorForbidden)
	})

	t.Run("unknown report", func(t *testing.T) {
		_, err := s.FetchOwn(context.Background(), hunter, "zzz.pdf")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("traversal", func(t *testing.T) {
		_, err := s.FetchOwn(context.Background(), hunter, "../a.pdf")
		assert.ErrorIs(t, err, common.ErrorValidation)
	})

	t.Run("row without file", func(t *testing.T) {
		rm.rep.items[2] = &models.Report{ID: 2, UserID: hunter.ID, BlobName: "gone.pdf"}
		_, err := s.FetchOwn(context.Background(), hunter, "gone.pdf")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})
}

func TestFetchAdmin(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	store := newFakeBlobStore()
	store.blobs["a.pdf"] = []byte("%PDF")
	s := newReportService(t, db, newFakeRepoManager(), store)

	_, err := s.FetchAdmin(context.Background(), "a.pdf")
	assert.NoError(t, err)

	_, err = s.FetchAdmin(context.Background(), "missing.pdf")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = s.FetchAdmin(context.Background(), `..\a.pdf`)
	assert.ErrorIs(t, err, common.ErrorValidation)

	store.openErr = errBoom{}
	_, err = s.FetchAdmin(context.Background(), "a.pdf")
	assert.ErrorIs(t, err, errBoom{})
}

func TestNewBlobName(t *testing.T) {
	a, b := NewBlobName(), NewBlobName()
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasSuffix(a, ".pdf"))
	assert.Len(t, a, 36+len(".pdf"))
}
