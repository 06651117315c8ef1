// Package gemini asks a Gemini-API model whether a redirected name and its resolution
// refer to the same place.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"google.golang.org/genai"

	"github.com/shpitdev/monuments-pipeline/internal/verify"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/core"
)

// DefaultModel is small enough for the free tier; callers rate-limit around it.
const DefaultModel = "gemma-3-4b-it"

type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string
}

type Verifier struct {
	client *genai.Client
	model  string
}

var _ verify.Equivalence = (*Verifier)(nil)

func New(ctx context.Context, cfg Config) (*Verifier, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &Verifier{client: client, model: model}, nil
}

func (v *Verifier) Model() string { return v.model }

// Equivalent returns true only when the model answers TRUE. Ambiguous answers are false.
func (v *Verifier) Equivalent(ctx context.Context, c verify.Candidate) (bool, error) {
	if strings.TrimSpace(c.InputName) == "" || strings.TrimSpace(c.WikiName) == "" {
		return false, errors.New("candidate needs both input and resolved names")
	}

	resp, err := v.client.Models.GenerateContent(
		ctx,
		v.model,
		genai.Text(BuildPrompt(c)),
		&genai.GenerateContentConfig{CandidateCount: 1},
	)
	if err != nil {
		return false, classifyErr(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		// Empty candidates show up under load; one more try is usually enough.
		return false, &core.LimitedTransientError{Err: errors.New("gemini: empty answer"), ExtraRetries: 1}
	}
	return ParseAnswer(text), nil
}

// BuildPrompt renders the yes/no question for one candidate.
func BuildPrompt(c verify.Candidate) string {
	return strings.TrimSpace(`
You check whether two names refer to the same monument or tourist attraction.

Input Name: ` + c.InputName + `
Wiki Name: ` + c.WikiName + `
Wiki Description: ` + c.Description + `
Category: ` + c.Category + `

Answer with exactly one word: TRUE if both names designate the same place, FALSE otherwise.
`)
}

// ParseAnswer maps a model answer to a verdict. TRUE wins over FALSE; anything else is false.
func ParseAnswer(answer string) bool {
	return strings.Contains(strings.ToUpper(answer), "TRUE")
}

func classifyErr(err error) error {
	// Wrap transient failures so the worker pool will retry with backoff.
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code/100 == 5 {
			return &core.TransientError{Err: err}
		}
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) && (ne.Timeout() || ne.Temporary()) {
		return &core.TransientError{Err: err}
	}
	return err
}
