package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	genai "google.golang.org/genai"

	"github.com/thywilljoshua/haunted-syllabus/internal/logger"
)

type Gemini struct {
	client *genai.Client
	model  string
}

type GeminiOption func(*genai.ClientConfig)

// WithBaseURL points the client at a different endpoint, e.g. a proxy.
func WithBaseURL(url string) GeminiOption {
	return func(c *genai.ClientConfig) {
		c.HTTPOptions.BaseURL = url
	}
}

func NewGemini(ctx context.Context, apiKey, model string, opts ...GeminiOption) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("missing GEMINI_API_KEY")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	cfg := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
	for _, o := range opts {
		o(cfg)
	}
	c, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Gemini{client: c, model: model}, nil
}

func (g *Gemini) generate(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	res, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", err
	}
	out := res.Text()
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

func (g *Gemini) Haunt(ctx context.Context, text string) (string, error) {
	logger.FromContext(ctx).Debug("Generating content with Gemini", "model", g.model, "chars", len(text))
	out, err := g.generate(ctx, []*genai.Content{
		genai.NewContentFromText(HauntPrompt(text), genai.RoleUser),
	}, nil)
	if err != nil {
		return "", err
	}
	return stripCodeFences(out), nil
}

const syllabusPrompt = `You are an expert academic assistant. Analyze the provided syllabus image. Identify and extract all distinct units or sections. For each unit extract:
1. The full title, including the unit number (e.g. "Unit 1: Introduction"). Correct any spelling mistakes.
2. A list of all the sub-topics, keywords, or concepts listed under that title.
Return a JSON object that adheres to the provided schema. Ignore page numbers and any metadata not related to topics.`

var syllabusSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"units": {
			Type:        genai.TypeArray,
			Description: "An array of unit objects extracted from the syllabus.",
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"id":     {Type: genai.TypeString, Description: `Unique identifier for the unit (e.g. "unit1").`},
					"title":  {Type: genai.TypeString, Description: "The unit title including its number."},
					"topics": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
				},
				Required: []string{"id", "title", "topics"},
			},
		},
	},
	Required: []string{"units"},
}

func (g *Gemini) ExtractSyllabus(ctx context.Context, image []byte, mimeType string) (Syllabus, error) {
	content := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{Text: syllabusPrompt},
			{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
		},
	}}
	js, err := g.generate(ctx, content, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   syllabusSchema,
	})
	if err != nil {
		return Syllabus{}, err
	}
	logger.FromContext(ctx).Debug("Gemini syllabus response", "bytes", len(js))
	return parseSyllabus(js)
}

const transcribePrompt = "Transcribe all readable text in this document exactly as written. Keep headings, lists and paragraph breaks. Return plain text only, no commentary."

func (g *Gemini) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	content := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{Text: transcribePrompt},
			{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
		},
	}}
	out, err := g.generate(ctx, content, nil)
	if err != nil {
		return "", err
	}
	return stripCodeFences(out), nil
}

func parseSyllabus(js string) (Syllabus, error) {
	var out Syllabus
	js = stripCodeFences(js)
	if err := json.Unmarshal([]byte(js), &out); err != nil {
		s := findFirstJSON(js)
		if s == "" {
			return out, fmt.Errorf("failed to parse syllabus response - no JSON found: %w", err)
		}
		if err2 := json.Unmarshal([]byte(s), &out); err2 != nil {
			return out, fmt.Errorf("failed to parse syllabus response: %w (original error: %v)", err2, err)
		}
	}
	if len(out.Units) == 0 {
		return out, ErrNoUnits
	}
	return out, nil
}

// stripCodeFences removes a ```lang ... ``` wrapper the model sometimes adds.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.Index(s, "\n"); nl != -1 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

// findFirstJSON returns the first balanced {...} object in s.
func findFirstJSON(s string) string {
	start := -1
	depth := 0
	inString, escaped := false, false
	for i, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			if start != -1 {
				inString = true
			}
		case '{':
			if start == -1 {
				start = i
			}
			depth++
		case '}':
			if start != -1 {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}
