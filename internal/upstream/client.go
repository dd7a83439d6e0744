package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/coursebay/player-session/internal/domain"
)

// Client consumes the LMS API. It implements the repository interfaces in
// the domain package; all course, lesson, completion and progress data lives
// upstream, this service persists nothing itself.
type Client struct {
	baseURL     string
	conn        *http.Client
	viewerToken string
}

var _ domain.LessonRepository = &Client{}
var _ domain.StructureRepository = &Client{}
var _ domain.CompletionRepository = &Client{}
var _ domain.ProgressRepository = &Client{}

// NewClient create an LMS API client
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		conn: &http.Client{
			Timeout: timeout,
		},
	}
}

// ForViewer derive a client that forwards the viewer token upstream, so
// enrollment checks run against the watching learner
func (cl *Client) ForViewer(token string) *Client {
	scoped := *cl
	scoped.viewerToken = token
	return &scoped
}

// GetLesson implement domain.LessonRepository
func (cl *Client) GetLesson(ctx context.Context, lessonID string) (*domain.LessonModel, error) {
	lesson := new(domain.LessonModel)
	if err := cl.getJSON(ctx, fmt.Sprintf("/lessons/%s", lessonID), lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

type streamPayload struct {
	EmbedURL    string `json:"embed_url"`
	ManifestURL string `json:"manifest_url"`
}

// GetStreamSource implement domain.LessonRepository.
//
// The upstream response carries exactly one of embed_url or manifest_url.
// A response carrying both or neither is treated as an upstream defect.
func (cl *Client) GetStreamSource(ctx context.Context, lessonID string) (*domain.StreamSourceModel, error) {
	payload := new(streamPayload)
	if err := cl.getJSON(ctx, fmt.Sprintf("/lessons/%s/stream", lessonID), payload); err != nil {
		return nil, err
	}
	switch {
	case payload.EmbedURL != "" && payload.ManifestURL != "":
		return nil, fmt.Errorf("upstream: stream response for lesson %s carries both embed and manifest URL", lessonID)
	case payload.EmbedURL != "":
		return &domain.StreamSourceModel{
			LessonID: lessonID,
			Mode:     domain.StreamModeEmbed,
			EmbedURL: payload.EmbedURL,
		}, nil
	case payload.ManifestURL != "":
		return &domain.StreamSourceModel{
			LessonID:    lessonID,
			Mode:        domain.StreamModeAdaptive,
			ManifestURL: payload.ManifestURL,
		}, nil
	}
	return nil, fmt.Errorf("upstream: stream response for lesson %s carries no playable URL", lessonID)
}

// GetSections implement domain.StructureRepository
func (cl *Client) GetSections(ctx context.Context, courseID string) ([]*domain.SectionModel, error) {
	var sections []*domain.SectionModel
	if err := cl.getJSON(ctx, fmt.Sprintf("/courses/%s/sections", courseID), &sections); err != nil {
		return nil, err
	}
	return sections, nil
}

// GetSectionLessons implement domain.StructureRepository
func (cl *Client) GetSectionLessons(ctx context.Context, sectionID string) ([]*domain.LessonModel, error) {
	var lessons []*domain.LessonModel
	if err := cl.getJSON(ctx, fmt.Sprintf("/sections/%s/lessons", sectionID), &lessons); err != nil {
		return nil, err
	}
	return lessons, nil
}

type completedPayload struct {
	LessonIDs []string `json:"lesson_ids"`
}

// GetCompletedLessonIDs implement domain.CompletionRepository
func (cl *Client) GetCompletedLessonIDs(ctx context.Context, courseID string) ([]string, error) {
	payload := new(completedPayload)
	if err := cl.getJSON(ctx, fmt.Sprintf("/courses/%s/completed-lessons", courseID), payload); err != nil {
		return nil, err
	}
	return payload.LessonIDs, nil
}

// MarkLessonComplete implement domain.CompletionRepository.
//
// The endpoint is idempotent upstream: completing an already-complete lesson
// returns the same confirmed state without double counting.
func (cl *Client) MarkLessonComplete(ctx context.Context, courseID, lessonID string) (*domain.CompletionReceipt, error) {
	receipt := new(domain.CompletionReceipt)
	path := fmt.Sprintf("/courses/%s/lessons/%s/complete", courseID, lessonID)
	if err := cl.doJSON(ctx, http.MethodPost, path, nil, receipt); err != nil {
		return nil, err
	}
	if receipt.LessonID == "" {
		receipt.LessonID = lessonID
	}
	if receipt.Progress != nil {
		receipt.Progress.Normalize()
	}
	return receipt, nil
}

// GetCourseProgress implement domain.ProgressRepository
func (cl *Client) GetCourseProgress(ctx context.Context, courseID string) (*domain.ProgressModel, error) {
	progress := new(domain.ProgressModel)
	if err := cl.getJSON(ctx, fmt.Sprintf("/courses/%s/progress", courseID), progress); err != nil {
		return nil, err
	}
	progress.Normalize()
	return progress, nil
}

func (cl *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	return cl.doJSON(ctx, http.MethodGet, path, nil, out)
}

func (cl *Client) doJSON(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, cl.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.viewerToken != "" {
		req.Header.Set("Authorization", "Bearer "+cl.viewerToken)
	}

	res, err := cl.conn.Do(req)
	if err != nil {
		return fmt.Errorf("upstream: %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if err := classifyStatus(res.StatusCode); err != nil {
		io.Copy(ioutil.Discard, res.Body)
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("upstream: decode %s %s: %w", method, path, err)
	}
	return nil
}

// classifyStatus map upstream HTTP statuses onto the domain error taxonomy
func classifyStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusForbidden:
		return domain.ErrNotEnrolled
	case status == http.StatusNotFound:
		return domain.ErrLessonNotFound
	case status == http.StatusTooEarly || status == http.StatusConflict:
		// the video is uploaded but still transcoding
		return domain.ErrStreamNotReady
	}
	return fmt.Errorf("upstream: unexpected status %d", status)
}
