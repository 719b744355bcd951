package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/bugsheriff/internal/server/models"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	SecretQuestion string `json:"secret_question"`
	SecretAnswer   string `json:"secret_answer"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type updateUserRequest struct {
	Password       *string `json:"password"`
	SecretQuestion *string `json:"secret_question"`
	SecretAnswer   *string `json:"secret_answer"`
	IBAN           *string `json:"iban"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type userDetailsResponse struct {
	Username       string `json:"username"`
	SecretQuestion string `json:"secret_question"`
	SecretAnswer   string `json:"secret_answer"`
	IBAN           string `json:"iban"`
}

type programRequest struct {
	Name                 *string `json:"name"`
	Description          *string `json:"description"`
	ApplicationStartDate *string `json:"application_start_date"`
	ApplicationEndDate   *string `json:"application_end_date"`
	Status               *string `json:"status"`
}

type programResponse struct {
	ID                   int64  `json:"id"`
	Name                 string `json:"name"`
	Description          string `json:"description"`
	ApplicationStartDate string `json:"application_start_date"`
	ApplicationEndDate   string `json:"application_end_date"`
	Status               string `json:"status"`
}

// Dates are rendered as HTTP dates, the format existing clients parse.
func newProgramResponse(p *models.Program) programResponse {
	return programResponse{
		ID:                   p.ID,
		Name:                 p.Name,
		Description:          p.Description,
		ApplicationStartDate: p.ApplicationStartDate.UTC().Format(http.TimeFormat),
		ApplicationEndDate:   p.ApplicationEndDate.UTC().Format(http.TimeFormat),
		Status:               p.Status,
	}
}

type reportResponse struct {
	ID            int64   `json:"id"`
	ProgramID     int64   `json:"program_id"`
	ProgramName   string  `json:"program_name"`
	ReportPDFPath string  `json:"report_pdf_path"`
	Status        string  `json:"status"`
	RewardAmount  float64 `json:"reward_amount"`
}

type adminReportResponse struct {
	ID            int64   `json:"id"`
	IBAN          string  `json:"iban"`
	ProgramName   string  `json:"program_name"`
	ReportPDFPath string  `json:"report_pdf_path"`
	Status        string  `json:"status"`
	RewardAmount  float64 `json:"reward_amount"`
}

// flexibleAmount accepts a reward as a JSON number or a string such as "12,50".
type flexibleAmount struct {
	Value *string
}

func (a *flexibleAmount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		a.Value = nil
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		a.Value = &s
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("reward_amount must be a number or a string")
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	a.Value = &s
	return nil
}

type reportUpdateRequest struct {
	Status       *string        `json:"status"`
	RewardAmount flexibleAmount `json:"reward_amount"`
}
