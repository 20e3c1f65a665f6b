package triageapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/setuhealth/setu/backend/internal/domain/entities"
	"github.com/setuhealth/setu/backend/internal/intake"
	apperrors "github.com/setuhealth/setu/backend/pkg/errors"
)

// Client talks to a remote Setu API. It serves intake sessions that run
// outside the API process, such as the terminal consultation.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type envelope struct {
	Success   bool                       `json:"success"`
	Error     string                     `json:"error"`
	Analysis  *entities.SeverityAnalysis `json:"analysis"`
	Report    *entities.Report           `json:"report"`
	Reply     string                     `json:"reply"`
	AIPowered bool                       `json:"aiPowered"`
}

// AnalyzeSeverity implements intake.Gateway
func (c *Client) AnalyzeSeverity(ctx context.Context, symptoms, history string, locale entities.Locale) (*entities.SeverityAnalysis, error) {
	body := map[string]string{"symptoms": symptoms, "history": history, "language": string(locale)}
	out, err := c.doJSON(ctx, http.MethodPost, "/api/ai/analyze", body)
	if err != nil {
		return nil, err
	}
	if out.Analysis == nil {
		return nil, apperrors.NewExternalError("analyze returned no analysis", nil)
	}
	return out.Analysis, nil
}

// GenerateReport implements intake.Gateway
func (c *Client) GenerateReport(ctx context.Context, req entities.ReportRequest) (*entities.Report, error) {
	out, err := c.doJSON(ctx, http.MethodPost, "/api/ai/report", req)
	if err != nil {
		return nil, err
	}
	if out.Report == nil {
		return nil, apperrors.NewExternalError("report endpoint returned no report", nil)
	}
	return out.Report, nil
}

// Chat implements intake.Gateway
func (c *Client) Chat(ctx context.Context, history []entities.ChatMessage, locale entities.Locale) (entities.ChatReply, error) {
	body := struct {
		Messages []entities.ChatMessage `json:"messages"`
		Language entities.Locale        `json:"language"`
	}{Messages: history, Language: locale}

	out, err := c.doJSON(ctx, http.MethodPost, "/api/ai/chat", body)
	if err != nil {
		return entities.ChatReply{}, err
	}
	return entities.ChatReply{Reply: out.Reply, AIPowered: out.AIPowered}, nil
}

// SubmitPatient implements intake.Registry
func (c *Client) SubmitPatient(ctx context.Context, submission intake.PatientSubmission) error {
	_, err := c.doJSON(ctx, http.MethodPost, "/api/patients", submission)
	return err
}

func (c *Client) doJSON(ctx context.Context, method, path string, in interface{}) (*envelope, error) {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperrors.NewExternalError(fmt.Sprintf("%s %s failed", method, path), err)
	}
	defer resp.Body.Close()

	env := &envelope{}
	decodeErr := json.NewDecoder(resp.Body).Decode(env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, apperrors.NewExternalError(fmt.Sprintf("setu api returned status %d: %s", resp.StatusCode, msg), nil)
	}
	if decodeErr != nil {
		return nil, apperrors.NewExternalError("decode setu api response", decodeErr)
	}
	if !env.Success {
		return nil, apperrors.NewExternalError("setu api reported failure: "+env.Error, nil)
	}
	return env, nil
}

var (
	_ intake.Gateway  = (*Client)(nil)
	_ intake.Registry = (*Client)(nil)
)
