package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"trustscan/internal/domain"
	"trustscan/internal/resilience"
)

const impersonationPrompt = `Analyze the domain "%s". Is this URL trying to impersonate a famous brand (like 'g0ogle.com', 'paypa1.com', 'faceb0ok.com')? Check for Levenshtein distance against top 500 global brands.
Return ONLY a JSON object: { "isImpersonation": boolean, "targetBrand": string | null }.`

var errMalformedVerdict = errors.New("gemini: malformed impersonation verdict")

// Gemini classifies brand impersonation with a generative model.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	policy  resilience.Policy
}

func NewGemini(apiKey, model, baseURL string, client *http.Client, policy resilience.Policy) *Gemini {
	return &Gemini{apiKey: apiKey, model: model, baseURL: strings.TrimRight(baseURL, "/"), client: client, policy: policy}
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMIMEType string  `json:"responseMimeType"`
	Temperature      float64 `json:"temperature"`
}

func (g *Gemini) Classify(ctx context.Context, hostname string) (domain.Impersonation, error) {
	if g.apiKey == "" {
		return domain.Impersonation{}, ErrNoAPIKey
	}
	payload, err := json.Marshal(generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: fmt.Sprintf(impersonationPrompt, hostname)}}}},
		GenerationConfig: generationConfig{ResponseMIMEType: "application/json"},
	})
	if err != nil {
		return domain.Impersonation{}, err
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)
	data, err := fetchJSON(ctx, g.client, g.policy, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", g.apiKey)
		return req, nil
	})
	if err != nil {
		return domain.Impersonation{}, err
	}
	return parseVerdict(gjson.GetBytes(data, "candidates.0.content.parts.0.text").String())
}

// parseVerdict reads the model's strict JSON reply, tolerating markdown fences.
func parseVerdict(text string) (domain.Impersonation, error) {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.TrimSpace(strings.ReplaceAll(text, "```", ""))
	if !gjson.Valid(text) {
		return domain.Impersonation{}, errMalformedVerdict
	}
	v := gjson.Parse(text)
	flag := v.Get("isImpersonation")
	if flag.Type != gjson.True && flag.Type != gjson.False {
		return domain.Impersonation{}, errMalformedVerdict
	}
	out := domain.Impersonation{Suspicious: flag.Bool()}
	if t := v.Get("targetBrand"); t.Type == gjson.String && t.String() != "" {
		brand := t.String()
		out.Target = &brand
	}
	return out, nil
}
