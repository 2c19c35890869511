package klingkit

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// DefaultVoiceModel is the model custom voices are registered against when none is given.
const DefaultVoiceModel = "kling-video-o1"

// CreateVoiceRequest is the body of [OpCreateVoice].
type CreateVoiceRequest struct {
	Model          string `json:"model"`
	VoiceName      string `json:"voice_name"`
	VoiceURL       string `json:"voice_url"`
	CallbackURL    string `json:"callback_url,omitempty"`
	ExternalTaskID string `json:"external_task_id,omitempty"`
}

// Validate checks required fields and URLs.
func (r CreateVoiceRequest) Validate() error {
	if strings.TrimSpace(r.VoiceName) == "" {
		return fmt.Errorf("%w: voice_name is required", ErrInvalidRequest)
	}
	if err := validateMediaURL("voice_url", r.VoiceURL); err != nil {
		return err
	}
	if r.CallbackURL != "" {
		if err := validateMediaURL("callback_url", r.CallbackURL); err != nil {
			return err
		}
	}
	return nil
}

// NewExternalTaskID returns a random id suitable for external_task_id.
func NewExternalTaskID() string {
	return "kling_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// CreateVoice registers a custom voice clone. An empty Model falls back to [DefaultVoiceModel].
func (c *Client) CreateVoice(ctx context.Context, req CreateVoiceRequest) (*Response, error) {
	if strings.TrimSpace(req.Model) == "" {
		req.Model = DefaultVoiceModel
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return c.Call(ctx, OpCreateVoice, CallOptions{Body: req})
}

// ListCustomVoices lists the caller's custom voices.
func (c *Client) ListCustomVoices(ctx context.Context, opts ListOptions) (*Response, error) {
	return c.Call(ctx, OpCustomVoices, CallOptions{Query: opts.Values()})
}

// GetCustomVoice fetches one custom voice.
func (c *Client) GetCustomVoice(ctx context.Context, voiceID string) (*Response, error) {
	if strings.TrimSpace(voiceID) == "" {
		return nil, fmt.Errorf("%w: voice_id is required", ErrInvalidRequest)
	}
	return c.Call(ctx, OpCustomVoices, CallOptions{ID: voiceID})
}

// ListPresetVoices lists the built-in voices.
func (c *Client) ListPresetVoices(ctx context.Context, opts ListOptions) (*Response, error) {
	return c.Call(ctx, OpPresetsVoices, CallOptions{Query: opts.Values()})
}

// DeleteVoice removes a custom voice.
func (c *Client) DeleteVoice(ctx context.Context, voiceID string) (*Response, error) {
	if strings.TrimSpace(voiceID) == "" {
		return nil, fmt.Errorf("%w: voice_id is required", ErrInvalidRequest)
	}
	return c.Call(ctx, OpDeleteVoices, CallOptions{Body: map[string]string{"voice_id": voiceID}})
}
