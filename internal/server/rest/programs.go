package rest

import (
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/bugsheriff/internal/server/services"
	"github.com/gin-gonic/gin"
)

// pathID parses the :id path parameter, answering 404 when it is not a number.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		abortMessage(c, http.StatusNotFound, "Not found")
		return 0, false
	}
	return id, true
}

func (r programRequest) input() services.ProgramInput {
	return services.ProgramInput{
		Name:                 r.Name,
		Description:          r.Description,
		ApplicationStartDate: r.ApplicationStartDate,
		ApplicationEndDate:   r.ApplicationEndDate,
		Status:               r.Status,
	}
}

func (s *HTTPServer) listPrograms(c *gin.Context) {
	programs, err := s.programs.List(c.Request.Context(), currentUser(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	resp := make([]programResponse, 0, len(programs))
	for _, p := range programs {
		resp = append(resp, newProgramResponse(p))
	}
	c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) createProgram(c *gin.Context) {
	var req programRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortMessage(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := s.programs.Create(c.Request.Context(), req.input())
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Program added", "id": p.ID})
}

func (s *HTTPServer) updateProgram(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req programRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortMessage(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if _, err := s.programs.Update(c.Request.Context(), id, req.input()); err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Program updated"})
}

func (s *HTTPServer) deleteProgram(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := s.programs.Delete(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "The program and its associated reports has been deleted!"})
}
