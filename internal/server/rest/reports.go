package rest

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/bugsheriff/internal/server/services"
	"github.com/gin-gonic/gin"
)

const (
	multipartMemory = 8 << 20
	pdfContentType  = "application/pdf"
)

// uploadedFile extracts the "file" part. A part sent without a filename is
// kept as a value by mime/multipart, so it is reported as an empty selection.
func uploadedFile(c *gin.Context) (*services.UploadFile, io.Closer, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		if !errors.Is(err, http.ErrMissingFile) {
			return nil, nil, err
		}
		if _, ok := c.Request.MultipartForm.Value["file"]; ok {
			return &services.UploadFile{Content: strings.NewReader("")}, nil, nil
		}
		return nil, nil, nil
	}

	f, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	return &services.UploadFile{Filename: fh.Filename, Content: f}, f, nil
}

func (s *HTTPServer) uploadReport(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abortMessage(c, http.StatusRequestEntityTooLarge, "File is too large")
			return
		}
		abortMessage(c, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	programID, err := strconv.ParseInt(strings.TrimSpace(c.PostForm("program_id")), 10, 64)
	if err != nil {
		abortMessage(c, http.StatusBadRequest, "Invalid program_id")
		return
	}

	file, closer, err := uploadedFile(c)
	if err != nil {
		abortMessage(c, http.StatusBadRequest, "Invalid file part")
		return
	}
	if closer != nil {
		defer closer.Close()
	}

	report, err := s.reports.Upload(c.Request.Context(), currentUser(c), programID, file)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "File uploaded successfully", "report_id": report.ID})
}

func (s *HTTPServer) listMyReports(c *gin.Context) {
	reports, err := s.reports.ListMine(c.Request.Context(), currentUser(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	resp := make([]reportResponse, 0, len(reports))
	for _, r := range reports {
		resp = append(resp, reportResponse{
			ID:            r.ID,
			ProgramID:     r.ProgramID,
			ProgramName:   r.ProgramName,
			ReportPDFPath: r.BlobName,
			Status:        r.Status,
			RewardAmount:  r.RewardAmount,
		})
	}
	c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) listAllReports(c *gin.Context) {
	reports, err := s.reports.ListAll(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	resp := make([]adminReportResponse, 0, len(reports))
	for _, r := range reports {
		resp = append(resp, adminReportResponse{
			ID:            r.ID,
			IBAN:          r.OwnerIBAN,
			ProgramName:   r.ProgramName,
			ReportPDFPath: r.BlobName,
			Status:        r.Status,
			RewardAmount:  r.RewardAmount,
		})
	}
	c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) updateReport(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req reportUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortMessage(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	_, err := s.reports.Update(c.Request.Context(), id, services.ReportUpdate{
		Status:       req.Status,
		RewardAmount: req.RewardAmount.Value,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Report updated"})
}

func (s *HTTPServer) fetchOwnFile(c *gin.Context) {
	rc, err := s.reports.FetchOwn(c.Request.Context(), currentUser(c), c.Param("filename"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.streamPDF(c, rc)
}

func (s *HTTPServer) fetchAnyFile(c *gin.Context) {
	rc, err := s.reports.FetchAdmin(c.Request.Context(), c.Param("filename"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.streamPDF(c, rc)
}

func (s *HTTPServer) streamPDF(c *gin.Context, rc io.ReadCloser) {
	defer rc.Close()
	c.DataFromReader(http.StatusOK, -1, pdfContentType, rc, map[string]string{
		"Content-Disposition": `inline; filename="` + c.Param("filename") + `"`,
	})
}
