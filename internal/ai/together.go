package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultImageModel is the Together AI FLUX model used for canvas images.
const DefaultImageModel = "black-forest-labs/FLUX.1-krea-dev"

const (
	defaultImageSteps = 10
	maxImagesPerCall  = 4
)

// TogetherClient calls the Together AI image generation API.
type TogetherClient struct {
	client *resty.Client
	apiKey string
	model  string
	logger *slog.Logger
}

var _ ImageGenerator = (*TogetherClient)(nil)

// NewTogetherClient creates a client for the given API key. baseURL is
// overridable for tests; empty means the public endpoint.
func NewTogetherClient(apiKey, model, baseURL string, logger *slog.Logger) *TogetherClient {
	if model == "" {
		model = DefaultImageModel
	}
	if baseURL == "" {
		baseURL = "https://api.together.xyz"
	}

	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(apiKey).
		SetTimeout(2 * time.Minute)

	return &TogetherClient{client: c, apiKey: apiKey, model: model, logger: logger}
}

type togetherRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	Steps          int    `json:"steps"`
	N              int    `json:"n"`
	ResponseFormat string `json:"response_format"`
}

// togetherImage tolerates the two payload spellings the API has been seen to
// use for base64 data.
type togetherImage struct {
	B64JSON string `json:"b64_json"`
	Image   string `json:"image"`
	URL     string `json:"url"`
}

type togetherResponse struct {
	Data []togetherImage `json:"data"`
}

// GenerateImage requests images from Together AI's FLUX model and returns
// them as base64 payloads ready to be placed on the canvas.
func (t *TogetherClient) GenerateImage(ctx context.Context, req ImageRequest) (*ImageResponse, error) {
	if t.apiKey == "" {
		return nil, fmt.Errorf("ai: TOGETHER_API_KEY is not configured")
	}
	if req.Prompt == "" {
		return nil, fmt.Errorf("ai: image prompt is required")
	}

	steps := req.Steps
	if steps <= 0 {
		steps = defaultImageSteps
	}
	count := req.Count
	if count <= 0 {
		count = 1
	}
	if count > maxImagesPerCall {
		count = maxImagesPerCall
	}

	body := togetherRequest{
		Model:          t.model,
		Prompt:         req.Prompt,
		Steps:          steps,
		N:              count,
		ResponseFormat: "b64_json",
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(&body).
		Post("/v1/images/generations")
	if err != nil {
		return nil, fmt.Errorf("ai: together request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("ai: together status %d: %s", resp.StatusCode(), resp.String())
	}

	var parsed togetherResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("ai: decoding together response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("ai: together returned no images")
	}

	images := make([]GeneratedImage, 0, len(parsed.Data))
	for i, img := range parsed.Data {
		data := img.B64JSON
		if data == "" {
			data = img.Image
		}
		if data == "" {
			// A URL-only payload would need a second fetch; treat it as a
			// provider contract violation rather than silently skipping.
			return nil, fmt.Errorf("ai: together image %d has no base64 data", i)
		}
		images = append(images, GeneratedImage{ImageData: data})
	}

	t.logger.Debug("together images received", slog.Int("count", len(images)))

	return &ImageResponse{Success: true, Images: images}, nil
}
