package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"github.com/golang-jwt/jwt/v5"
)

// StepsContext holds state shared between step definitions
type StepsContext struct {
	tc           *TestContext
	response     *http.Response
	responseBody []byte
	authToken    string
	projectID    int64
	pipelineID   int64
	jobID        int64
}

// NewStepsContext creates a new steps context
func NewStepsContext(tc *TestContext) *StepsContext {
	return &StepsContext{tc: tc}
}

// RegisterSteps registers all step definitions
func (s *StepsContext) RegisterSteps(sc *godog.ScenarioContext) {
	// Background steps
	sc.Step(`^a scanstore server is running$`, s.aScanstoreServerIsRunning)
	sc.Step(`^I am authenticated as "([^"]*)"$`, s.iAmAuthenticatedAs)
	sc.Step(`^I am not authenticated$`, s.iAmNotAuthenticated)

	// Pipeline steps
	sc.Step(`^I create a pipeline for project (\d+) on ref "([^"]*)"$`, s.iCreateAPipeline)
	sc.Step(`^I create a job "([^"]*)"$`, s.iCreateAJob)
	sc.Step(`^I upload the report fixture "([^"]*)" as "([^"]*)"$`, s.iUploadTheReportFixture)
	sc.Step(`^I upload the following "([^"]*)" report:$`, s.iUploadTheFollowingReport)
	sc.Step(`^I request ingestion of the pipeline's security reports$`, s.iRequestIngestion)

	// Listing steps
	sc.Step(`^the pipeline should eventually have (\d+) security scans?$`, s.thePipelineShouldEventuallyHaveScans)
	sc.Step(`^I list the pipeline's security scans$`, s.iListTheScans)
	sc.Step(`^I list the pipeline's security findings with "([^"]*)"$`, s.iListTheFindings)
	sc.Step(`^I list the approval rules of project (\d+)$`, s.iListTheApprovalRules)

	// Response steps
	sc.Step(`^the response status should be (\d+)$`, s.theResponseStatusShouldBe)
	sc.Step(`^the response should contain (\d+) items?$`, s.theResponseShouldContainItems)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, s.theResponseHeaderShouldBe)
	sc.Step(`^the response error code should be "([^"]*)"$`, s.theResponseErrorCodeShouldBe)
	sc.Step(`^item (\d+) should have "([^"]*)" equal to "([^"]*)"$`, s.itemShouldHave)

	// Database steps
	sc.Step(`^the database should contain (\d+) security findings? for the pipeline$`, s.theDatabaseShouldContainFindings)
}

// Background steps

func (s *StepsContext) aScanstoreServerIsRunning() error {
	// Server is already running via TestContext
	return nil
}

func (s *StepsContext) iAmAuthenticatedAs(subject string) error {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString(s.tc.JWTSecret)
	if err != nil {
		return err
	}
	s.authToken = signed
	return nil
}

func (s *StepsContext) iAmNotAuthenticated() error {
	s.authToken = ""
	return nil
}

// HTTP helpers

func (s *StepsContext) do(method, path string, body []byte) error {
	req, err := http.NewRequest(method, s.tc.ServerURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if s.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.authToken)
	}
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	s.response, err = s.tc.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	s.responseBody, err = io.ReadAll(s.response.Body)
	_ = s.response.Body.Close()
	return err
}

func (s *StepsContext) expectStatus(code int) error {
	if s.response.StatusCode != code {
		return fmt.Errorf("expected status %d, got %d: %s", code, s.response.StatusCode, s.responseBody)
	}
	return nil
}

func (s *StepsContext) decodeID() (int64, error) {
	var out struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(s.responseBody, &out); err != nil {
		return 0, fmt.Errorf("failed to parse response: %w", err)
	}
	return out.ID, nil
}

// Pipeline steps

func (s *StepsContext) iCreateAPipeline(projectID int64, ref string) error {
	s.projectID = projectID
	body, _ := json.Marshal(map[string]interface{}{
		"ref":            ref,
		"sha":            "b83d6e391c22777fca1ed3012fce84f633d7fed0",
		"status":         "success",
		"default_branch": true,
	})
	if err := s.do(http.MethodPost, fmt.Sprintf("/projects/%d/pipelines", projectID), body); err != nil {
		return err
	}
	if err := s.expectStatus(http.StatusCreated); err != nil {
		return err
	}
	id, err := s.decodeID()
	s.pipelineID = id
	return err
}

func (s *StepsContext) iCreateAJob(name string) error {
	body, _ := json.Marshal(map[string]interface{}{"name": name, "status": "success"})
	if err := s.do(http.MethodPost, fmt.Sprintf("/pipelines/%d/jobs", s.pipelineID), body); err != nil {
		return err
	}
	if err := s.expectStatus(http.StatusCreated); err != nil {
		return err
	}
	id, err := s.decodeID()
	s.jobID = id
	return err
}

func (s *StepsContext) iUploadTheReportFixture(fixture, reportType string) error {
	data, err := os.ReadFile(fixturePath(fixture))
	if err != nil {
		return err
	}
	return s.upload(reportType, data)
}

func (s *StepsContext) iUploadTheFollowingReport(reportType string, doc *godog.DocString) error {
	return s.upload(reportType, []byte(doc.Content))
}

func (s *StepsContext) upload(reportType string, data []byte) error {
	return s.do(http.MethodPut, fmt.Sprintf("/jobs/%d/artifacts/%s", s.jobID, reportType), data)
}

func (s *StepsContext) iRequestIngestion() error {
	return s.do(http.MethodPost, fmt.Sprintf("/pipelines/%d/security_reports", s.pipelineID), nil)
}

// Listing steps

func (s *StepsContext) thePipelineShouldEventuallyHaveScans(count int) error {
	deadline := time.Now().Add(15 * time.Second)
	for {
		if err := s.iListTheScans(); err != nil {
			return err
		}
		var scans []json.RawMessage
		if s.response.StatusCode == http.StatusOK && json.Unmarshal(s.responseBody, &scans) == nil && len(scans) == count {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("pipeline %d has %d scans, expected %d: %s", s.pipelineID, len(scans), count, s.responseBody)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func (s *StepsContext) iListTheScans() error {
	return s.do(http.MethodGet, fmt.Sprintf("/pipelines/%d/security_scans", s.pipelineID), nil)
}

func (s *StepsContext) iListTheFindings(query string) error {
	path := fmt.Sprintf("/pipelines/%d/security_findings", s.pipelineID)
	if query != "" {
		path += "?" + query
	}
	return s.do(http.MethodGet, path, nil)
}

func (s *StepsContext) iListTheApprovalRules(projectID int64) error {
	return s.do(http.MethodGet, fmt.Sprintf("/projects/%d/approval_rules", projectID), nil)
}

// Response steps

func (s *StepsContext) theResponseStatusShouldBe(code int) error {
	return s.expectStatus(code)
}

func (s *StepsContext) items() ([]map[string]interface{}, error) {
	var items []map[string]interface{}
	if err := json.Unmarshal(s.responseBody, &items); err != nil {
		return nil, fmt.Errorf("response is not a list: %s", s.responseBody)
	}
	return items, nil
}

func (s *StepsContext) theResponseShouldContainItems(count int) error {
	items, err := s.items()
	if err != nil {
		return err
	}
	if len(items) != count {
		return fmt.Errorf("expected %d items, got %d: %s", count, len(items), s.responseBody)
	}
	return nil
}

func (s *StepsContext) theResponseHeaderShouldBe(name, expected string) error {
	if got := s.response.Header.Get(name); got != expected {
		return fmt.Errorf("expected header %s to be %q, got %q", name, expected, got)
	}
	return nil
}

func (s *StepsContext) theResponseErrorCodeShouldBe(code string) error {
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(s.responseBody, &envelope); err != nil {
		return fmt.Errorf("failed to parse error: %w", err)
	}
	if envelope.Error.Code != code {
		return fmt.Errorf("expected error code %q, got %q", code, envelope.Error.Code)
	}
	return nil
}

func (s *StepsContext) itemShouldHave(index int, field, expected string) error {
	items, err := s.items()
	if err != nil {
		return err
	}
	if index < 1 || index > len(items) {
		return fmt.Errorf("no item %d in %d items", index, len(items))
	}
	got := fmt.Sprint(items[index-1][field])
	if !strings.EqualFold(got, expected) {
		return fmt.Errorf("expected item %d %s to be %q, got %q", index, field, expected, got)
	}
	return nil
}

// Database steps

func (s *StepsContext) theDatabaseShouldContainFindings(count int) error {
	var n int64
	err := s.tc.DB.Raw(`
		SELECT COUNT(*) FROM security_findings f
		JOIN security_scans s ON s.id = f.scan_id
		WHERE s.pipeline_id = ?
	`, s.pipelineID).Scan(&n).Error
	if err != nil {
		return err
	}
	if n != int64(count) {
		return fmt.Errorf("expected %d findings, got %d", count, n)
	}
	return nil
}
