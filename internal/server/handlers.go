package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thywilljoshua/haunted-syllabus/internal/ai"
	"github.com/thywilljoshua/haunted-syllabus/internal/chunk"
	"github.com/thywilljoshua/haunted-syllabus/internal/export"
	"github.com/thywilljoshua/haunted-syllabus/internal/extract"
	"github.com/thywilljoshua/haunted-syllabus/internal/haunt"
	"github.com/thywilljoshua/haunted-syllabus/internal/logger"
	"github.com/thywilljoshua/haunted-syllabus/internal/paginate"
	"github.com/thywilljoshua/haunted-syllabus/internal/retry"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC().Format(time.RFC3339)})
}

// upload accepts a multipart "file". Images are read as syllabi; documents
// are returned as sanitized text.
func (s *Server) upload(c *gin.Context) {
	if s.cfg.MaxUploadBytes > 0 {
		// room for the multipart envelope
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes+64*1024)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(c, fmt.Errorf("%w: file exceeds %d MB limit", extract.ErrTooLarge, s.cfg.MaxUploadBytes/(1024*1024)))
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No file provided"})
		return
	}
	if err := extract.Validate(fh.Filename, fh.Header.Get("Content-Type"), fh.Size, s.cfg.MaxUploadBytes); err != nil {
		s.fail(c, err)
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.fail(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		s.fail(c, err)
		return
	}

	ctx := c.Request.Context()
	mt := extract.DetectMIME(data)
	logger.FromContext(ctx).Info("Processing upload", "file", fh.Filename, "bytes", len(data), "mime", mt)

	if strings.HasPrefix(mt, "image/") {
		syl, err := s.pipeline.Syllabus(ctx, data, mt)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":           true,
			"type":              "syllabus",
			"syllabusData":      syl,
			"extractionStatus":  "success",
			"extractionMessage": fmt.Sprintf("Successfully analyzed syllabus and extracted %d units", len(syl.Units)),
		})
		return
	}

	doc, err := s.pipeline.Document(ctx, fh.Filename, data)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"type":     "document",
		"fileName": doc.Name,
		"mimeType": doc.MIMEType,
		"text":     doc.Text,
		"pages":    doc.Pages,
	})
}

type hauntRequest struct {
	Text      string `json:"text"`
	ChunkSize int    `json:"chunkSize"`
	PageSize  int    `json:"pageSize"`
}

func (s *Server) haunt(c *gin.Context) {
	var req hauntRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No text provided"})
		return
	}
	res, err := s.pipeline.Run(c.Request.Context(), haunt.Request{
		Text:              req.Text,
		MaxChunkSize:      req.ChunkSize,
		CharactersPerPage: req.PageSize,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resultBody(res))
}

type lessonRequest struct {
	Unit  string `json:"unit"`
	Topic string `json:"topic"`
	Kind  string `json:"kind"`
}

func (s *Server) lesson(c *gin.Context) {
	var req lessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}
	kind, err := ai.ParseLessonKind(req.Kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	res, err := s.pipeline.Lesson(c.Request.Context(), kind, req.Unit, req.Topic)
	if err != nil {
		s.fail(c, err)
		return
	}
	body := resultBody(res)
	body["kind"] = kind
	c.JSON(http.StatusOK, body)
}

func resultBody(res haunt.Result) gin.H {
	return gin.H{
		"success":         true,
		"jobId":           res.JobID,
		"hauntedText":     res.Text,
		"processedChunks": res.ProcessedChunks,
		"pages":           res.Pages,
		"totalPages":      len(res.Pages),
		"merge":           res.Merge,
		"outline":         res.Outline,
	}
}

type paginateRequest struct {
	Content           string `json:"content"`
	CharactersPerPage int    `json:"charactersPerPage"`
	Page              int    `json:"page"`
}

func (s *Server) paginate(c *gin.Context) {
	var req paginateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}
	pages := s.pipeline.Paginate(req.Content, req.CharactersPerPage)
	page := paginate.ClampPage(req.Page, len(pages))
	current := ""
	if len(pages) > 0 {
		current = pages[page-1]
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"pages":      pages,
		"totalPages": len(pages),
		"page":       page,
		"current":    current,
	})
}

type exportRequest struct {
	Content  string `json:"content"`
	Filename string `json:"filename"`
}

func (s *Server) export(c *gin.Context) {
	format, err := export.ParseFormat(c.Param("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No content provided"})
		return
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, format, req.Content, req.Filename); err != nil {
		logger.FromContext(c.Request.Context()).Error("Export failed", "format", format, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to generate " + strings.ToUpper(string(format))})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(req.Filename, format)))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// fail maps err to a status code and a client-safe message.
func (s *Server) fail(c *gin.Context, err error) {
	code, msg := classify(err)
	log := logger.FromContext(c.Request.Context())
	if code >= http.StatusInternalServerError {
		log.Error("Request failed", "error", err)
	} else {
		log.Warn("Request rejected", "status", code, "error", err)
	}
	c.JSON(code, gin.H{"success": false, "error": msg})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, haunt.ErrEmptyText),
		errors.Is(err, haunt.ErrMissingTopic),
		errors.Is(err, chunk.ErrChunkTooSmall),
		errors.Is(err, extract.ErrUnsupportedType),
		errors.Is(err, extract.ErrTooLarge),
		errors.Is(err, extract.ErrNoText):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ai.ErrNoUnits):
		return http.StatusUnprocessableEntity, "Could not identify course units in the syllabus. Please ensure the image contains a clear syllabus structure."
	case errors.Is(err, ai.ErrNotConfigured):
		return http.StatusServiceUnavailable, "AI service not configured"
	case isRateLimit(err):
		return http.StatusTooManyRequests, "AI service rate limit exceeded. Please try again later."
	}
	return http.StatusInternalServerError, "Content generation failed. Please try again later."
}

func isRateLimit(err error) bool {
	if !retry.IsRetryable(err) {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit")
}
