package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"coursepay/internal/config"
)

// ErrCourseNotFound is returned when the catalog has no such course.
var ErrCourseNotFound = errors.New("course not found")

// Course is the catalog's read-only view of a purchasable course.
type Course struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Thumbnail    string `json:"thumbnail"`
	InstructorID string `json:"instructor_id"`
	Price        int64  `json:"price"` // minor currency units
	Currency     string `json:"currency"`
}

// CatalogClient reads course data from the course-catalog service.
// The payment core never writes through it.
type CatalogClient interface {
	GetCourse(ctx context.Context, courseID string) (*Course, error)
	CountLessons(ctx context.Context, courseID string) (int, error)
}

type catalogClientImpl struct {
	httpClient *http.Client
	baseApiURL string
}

func NewCatalogClient(catalogCfg *config.Catalog) CatalogClient {
	return &catalogClientImpl{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseApiURL: catalogCfg.BaseApiURL,
	}
}

func (c *catalogClientImpl) GetCourse(ctx context.Context, courseID string) (*Course, error) {
	reqURL := fmt.Sprintf("%s/api/courses/%s", c.baseApiURL, url.PathEscape(courseID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrCourseNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("catalog error: status=%d", resp.StatusCode)
	}

	var course Course
	if err := json.NewDecoder(resp.Body).Decode(&course); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}

	return &course, nil
}

func (c *catalogClientImpl) CountLessons(ctx context.Context, courseID string) (int, error) {
	reqURL := fmt.Sprintf("%s/api/courses/%s/lessons/count", c.baseApiURL, url.PathEscape(courseID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("http new request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, ErrCourseNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("catalog error: status=%d", resp.StatusCode)
	}

	var result struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode catalog response: %w", err)
	}

	return result.Count, nil
}
