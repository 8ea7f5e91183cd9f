package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotConfigured = errors.New("ai provider not configured")
	ErrNoUnits       = errors.New("could not identify course units in the syllabus")
	ErrEmptyResponse = errors.New("ai returned an empty response")
)

type Unit struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Topics []string `json:"topics"`
}

type Syllabus struct {
	Units []Unit `json:"units"`
}

// Generator is the external model. Every call is a single request; retrying
// is the caller's business.
type Generator interface {
	Haunt(ctx context.Context, text string) (string, error)
	ExtractSyllabus(ctx context.Context, image []byte, mimeType string) (Syllabus, error)
	ExtractText(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Noop echoes text back and cannot read images. It keeps the pipeline usable
// offline.
type Noop struct{}

func (Noop) Haunt(ctx context.Context, text string) (string, error) { return text, nil }
func (Noop) ExtractSyllabus(ctx context.Context, image []byte, mimeType string) (Syllabus, error) {
	return Syllabus{}, ErrNotConfigured
}
func (Noop) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	return "", ErrNotConfigured
}

const hauntInstruction = "Use proper markdown formatting with clear headings and structure. Make it comprehensive and educational."

// HauntPrompt wraps a piece of source text with the generation instruction.
func HauntPrompt(text string) string {
	return text + "\n\n" + hauntInstruction
}

type LessonKind string

const (
	LessonOverview  LessonKind = "overview"
	LessonInDepth   LessonKind = "indepth"
	LessonTakeaways LessonKind = "takeaways"
)

func ParseLessonKind(s string) (LessonKind, error) {
	switch k := LessonKind(strings.ToLower(strings.TrimSpace(s))); k {
	case LessonOverview, LessonInDepth, LessonTakeaways:
		return k, nil
	case "":
		return LessonOverview, nil
	}
	return "", fmt.Errorf("unknown lesson kind %q (want overview|indepth|takeaways)", s)
}

// LessonPrompt builds the request text for one topic of a syllabus unit.
func LessonPrompt(kind LessonKind, unit, topic string) string {
	var lead string
	switch kind {
	case LessonInDepth:
		lead = fmt.Sprintf("Provide an in-depth explanation of %q from the unit %q. Include detailed explanations, examples, step-by-step breakdowns, and comprehensive coverage of all aspects of this topic. Use proper headings and formatting.", topic, unit)
	case LessonTakeaways:
		lead = fmt.Sprintf("Provide the key takeaways for %q from the unit %q. Focus on the most important facts, concepts, and information that someone must know about this topic. Present as clear, memorable points.", topic, unit)
	default:
		lead = fmt.Sprintf("Provide a comprehensive overview of %q from the unit %q. Include the main concepts, key definitions, and important points that explain what this topic is about. Use clear headings and bullet points.", topic, unit)
	}
	return fmt.Sprintf("%s\n\nTopic: %s\nUnit: %s", lead, topic, unit)
}
