package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"yks_coach_backend/internal/config"
	"yks_coach_backend/internal/util"
	"yks_coach_backend/pkg/logger"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// ImageInput 随提示词一起发送给模型的图片
type ImageInput struct {
	Data     []byte
	MIMEType string
}

// AIProvider 生成式模型的最小接口，教练流程只依赖它
type AIProvider interface {
	Generate(ctx context.Context, prompt string, image *ImageInput) (string, error)
}

// AIService 根据配置选择 Gemini 或 OpenAI 兼容接口，支持配置热更新
type AIService struct {
	mu       sync.RWMutex
	config   config.AIConfig
	provider AIProvider
}

func NewAIService(cfg config.AIConfig) *AIService {
	s := &AIService{}
	s.Reconfigure(cfg)
	return s
}

// Reconfigure 替换当前的模型配置；新配置无效时保持未配置状态
func (s *AIService) Reconfigure(cfg config.AIConfig) {
	provider, err := newProvider(cfg)
	if err != nil {
		logger.Log.Warn("AI provider disabled", zap.String("provider", cfg.Provider), zap.Error(err))
	}

	s.mu.Lock()
	s.config = cfg
	s.provider = provider
	s.mu.Unlock()
}

func (s *AIService) Configured() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.provider != nil
}

func (s *AIService) Generate(ctx context.Context, prompt string, image *ImageInput) (string, error) {
	s.mu.RLock()
	provider, timeout := s.provider, s.config.Timeout()
	s.mu.RUnlock()

	if provider == nil {
		return "", util.ErrAIUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, err := provider.Generate(ctx, prompt, image)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("AI returned empty text")
	}
	return text, nil
}

func newProvider(cfg config.AIConfig) (AIProvider, error) {
	if cfg.APIKey == "" {
		return nil, util.ErrAIUnavailable
	}
	switch cfg.Provider {
	case "", "gemini":
		return newGeminiProvider(cfg)
	case "openai":
		if cfg.BaseURL == "" {
			return nil, errors.New("ai.base_url is required for openai provider")
		}
		return &openAIProvider{config: cfg, client: &http.Client{}}, nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}

type geminiProvider struct {
	client *genai.Client
	model  string
}

func newGeminiProvider(cfg config.AIConfig) (*geminiProvider, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &geminiProvider{client: client, model: cfg.Model}, nil
}

func (p *geminiProvider) Generate(ctx context.Context, prompt string, image *ImageInput) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	if image != nil {
		parts = append(parts, genai.NewPartFromBytes(image.Data, image.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	result, err := p.client.Models.GenerateContent(ctx, p.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return result.Text(), nil
}

// openAIProvider 调用 OpenAI 兼容的 /chat/completions 接口
type openAIProvider struct {
	config config.AIConfig
	client *http.Client
}

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *openAIProvider) Generate(ctx context.Context, prompt string, image *ImageInput) (string, error) {
	var content interface{} = prompt
	if image != nil {
		dataURL := "data:" + image.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(image.Data)
		content = []chatContentPart{
			{Type: "text", Text: prompt},
			{Type: "image_url", ImageURL: &chatImageURL{URL: dataURL}},
		}
	}

	reqBody := chatCompletionRequest{
		Model:    p.config.Model,
		Messages: []chatMessage{{Role: "user", Content: content}},
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	endpoint := strings.TrimRight(p.config.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("AI API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result chatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}
	if result.Error != nil {
		return "", errors.New(result.Error.Message)
	}
	if len(result.Choices) > 0 {
		return result.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("AI returned no choices")
}
