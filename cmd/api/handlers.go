package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/analyzer"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/guidance"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/logging"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/metrics"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/middleware"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/storage"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/video"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/webhook"
	"github.com/therealutkarshpriyadarshi/emergencyprep/pkg/models"
)

const uploadURLExpiry = 15 * time.Minute

// Analyzer runs one synchronous analysis
type Analyzer interface {
	Run(ctx context.Context, path string) (*models.Analysis, error)
}

// JobPublisher queues analysis jobs for the workers
type JobPublisher interface {
	PublishJob(ctx context.Context, job *models.AnalysisJob) error
}

// ObjectStore holds videos submitted for asynchronous analysis
type ObjectStore interface {
	Stat(ctx context.Context, key string) (*storage.ObjectInfo, error)
	PresignedUploadURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

type API struct {
	analyzer        Analyzer
	analysisEnabled bool
	storage         ObjectStore
	queue           JobPublisher
	tempDir         string
	maxUploadSize   int64
	checks          map[string]HealthCheck
	logger          *logging.Logger
}

// healthCheck reports the status of every configured dependency
func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := gin.H{}
	for name, check := range api.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			deps[name] = err.Error()
			continue
		}
		deps[name] = "ok"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "unhealthy"
	}
	c.JSON(status, gin.H{
		"status":           state,
		"analysis_enabled": api.analysisEnabled,
		"dependencies":     deps,
	})
}

// analyzeVideo classifies an uploaded video and returns guidance for it
func (api *API) analyzeVideo(c *gin.Context) {
	if c.Request.ContentLength > api.maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Video exceeds upload limit"})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, api.maxUploadSize)

	file, err := c.FormFile("video")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Video exceeds upload limit"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No video file provided"})
		return
	}
	if !video.SupportedExtension(file.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported video format, use mp4, avi, mov or mkv"})
		return
	}

	situation, err := formContext(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tempPath, err := api.saveTemp(file)
	if err != nil {
		api.logger.ErrorWithErr("Failed to save upload", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file"})
		return
	}
	defer os.Remove(tempPath)
	metrics.RecordUpload(file.Size)

	if !api.analysisEnabled {
		analysis := analyzer.Disabled()
		analysis.Guidance = guidance.Render(nil, situation)
		c.JSON(http.StatusOK, analysis)
		return
	}

	analysis, err := api.analyzer.Run(c.Request.Context(), tempPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Analysis failed"})
		return
	}

	switch analysis.Status {
	case models.AnalysisStatusCompleted:
		analysis.Guidance = guidance.Render(analysis.Result, situation)
		c.JSON(http.StatusOK, analysis)
	case models.AnalysisStatusUnavailable:
		analysis.Guidance = guidance.Render(nil, situation)
		c.JSON(unavailableStatus(analysis.Reason), analysis)
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unexpected analysis status"})
	}
}

func unavailableStatus(reason string) int {
	switch reason {
	case models.ReasonTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusUnprocessableEntity
	}
}

func (api *API) saveTemp(file *multipart.FileHeader) (string, error) {
	if err := os.MkdirAll(api.tempDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	dst, err := os.CreateTemp(api.tempDir, "upload-*"+strings.ToLower(filepath.Ext(file.Filename)))
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	return dst.Name(), nil
}

// createUploadURL hands out a presigned URL for uploading a video to be
// analyzed asynchronously
func (api *API) createUploadURL(c *gin.Context) {
	if api.storage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Object storage not configured"})
		return
	}

	filename := c.Query("filename")
	if !video.SupportedExtension(filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported video format, use mp4, avi, mov or mkv"})
		return
	}

	key := storage.ObjectKey(uuid.New().String(), filename)
	uploadURL, err := api.storage.PresignedUploadURL(c.Request.Context(), key, uploadURLExpiry)
	if err != nil {
		api.logger.ErrorWithErr("Failed to presign upload", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create upload URL"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"video_key":  key,
		"upload_url": uploadURL,
		"expires_in": int(uploadURLExpiry.Seconds()),
	})
}

type createJobRequest struct {
	VideoKey    string                  `json:"video_key" binding:"required"`
	CallbackURL string                  `json:"callback_url" binding:"required"`
	Context     models.SituationContext `json:"context"`
}

// createJob queues an uploaded video for asynchronous analysis
func (api *API) createJob(c *gin.Context) {
	if api.storage == nil || api.queue == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Asynchronous analysis not configured"})
		return
	}

	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !storage.ValidKey(req.VideoKey) || !video.SupportedExtension(req.VideoKey) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid video_key"})
		return
	}
	if err := webhook.ValidateCallbackURL(req.CallbackURL); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	situation := guidance.Normalize(req.Context)
	if err := guidance.Validate(situation); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := api.storage.Stat(c.Request.Context(), req.VideoKey); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Video not found"})
			return
		}
		api.logger.ErrorWithErr("Failed to stat video", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check video"})
		return
	}

	job := &models.AnalysisJob{
		ID:          uuid.New().String(),
		VideoKey:    req.VideoKey,
		CallbackURL: req.CallbackURL,
		Context:     situation,
		CreatedAt:   time.Now(),
	}
	if partnerID, ok := middleware.GetPartnerID(c); ok {
		job.SubmittedBy = partnerID
	}

	if err := api.queue.PublishJob(c.Request.Context(), job); err != nil {
		api.logger.WithJobID(job.ID).ErrorWithErr("Failed to queue job", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue job"})
		return
	}

	api.logger.LogJobEvent(job.ID, "queued", "pending", map[string]interface{}{
		"video_key":    job.VideoKey,
		"submitted_by": job.SubmittedBy,
	})
	c.JSON(http.StatusAccepted, gin.H{
		"job_id": job.ID,
		"status": "queued",
	})
}

// getGuidance renders the advice for a label without analyzing a video
func (api *API) getGuidance(c *gin.Context) {
	label, err := models.ParseLabel(c.Param("label"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	situation, err := queryContext(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, guidance.RenderLabel(label, situation))
}

// getDisasterInfo returns the bilingual safety article for a disaster type
func (api *API) getDisasterInfo(c *gin.Context) {
	article, err := guidance.DisasterInfo(c.DefaultQuery("language", guidance.LanguageEnglish), c.DefaultQuery("type", guidance.DisasterNone))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, article)
}

func (api *API) listFirstAid(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"kinds": guidance.FirstAidKinds})
}

func (api *API) getFirstAid(c *gin.Context) {
	procedure, err := guidance.FirstAid(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, procedure)
}

func (api *API) getContacts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"contacts": guidance.EmergencyContacts()})
}

func (api *API) getOverview(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"overview":    guidance.Overview(),
		"safety_tips": guidance.SafetyTips(),
	})
}

func formContext(c *gin.Context) (guidance.Context, error) {
	return buildContext(c.PostFormArray("resources"), c.PostForm("location"), c.PostForm("people"), c.PostForm("language"))
}

func queryContext(c *gin.Context) (guidance.Context, error) {
	return buildContext(c.QueryArray("resources"), c.Query("location"), c.Query("people"), c.Query("language"))
}

func buildContext(resources []string, location, people, language string) (guidance.Context, error) {
	ctx := guidance.Context{
		Resources: resources,
		Location:  location,
		Language:  language,
	}
	if people != "" {
		n, err := strconv.Atoi(people)
		if err != nil {
			return ctx, fmt.Errorf("%w: people must be a number", guidance.ErrInvalidContext)
		}
		if n < 1 {
			return ctx, fmt.Errorf("%w: people must be at least 1, got %d", guidance.ErrInvalidContext, n)
		}
		ctx.PeopleCount = n
	}

	ctx = guidance.Normalize(ctx)
	if err := guidance.Validate(ctx); err != nil {
		return ctx, err
	}
	return ctx, nil
}
