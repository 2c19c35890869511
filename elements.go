package klingkit

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ElementReference is one extra reference image for a custom element.
type ElementReference struct {
	ImageURL string `json:"image_url"`
}

// ElementTag attaches a catalog tag to a custom element.
type ElementTag struct {
	TagID string `json:"tag_id"`
}

// CreateElementRequest is the body of [OpCreateElement].
type CreateElementRequest struct {
	ElementName        string             `json:"element_name"`
	ElementDescription string             `json:"element_description,omitempty"`
	FrontalImage       string             `json:"element_frontal_image"`
	ReferImages        []ElementReference `json:"element_refer_list,omitempty"`
	Tags               []ElementTag       `json:"tag_list,omitempty"`
}

// Validate checks required fields and image URLs.
func (r CreateElementRequest) Validate() error {
	if strings.TrimSpace(r.ElementName) == "" {
		return fmt.Errorf("%w: element_name is required", ErrInvalidRequest)
	}
	if err := validateMediaURL("element_frontal_image", r.FrontalImage); err != nil {
		return err
	}
	for i, ref := range r.ReferImages {
		if err := validateMediaURL(fmt.Sprintf("element_refer_list[%d].image_url", i), ref.ImageURL); err != nil {
			return err
		}
	}
	for i, tag := range r.Tags {
		if strings.TrimSpace(tag.TagID) == "" {
			return fmt.Errorf("%w: tag_list[%d].tag_id is empty", ErrInvalidRequest, i)
		}
	}
	return nil
}

// ReferencesFromURLs wraps image URLs as element references.
func ReferencesFromURLs(urls []string) []ElementReference {
	if len(urls) == 0 {
		return nil
	}
	out := make([]ElementReference, 0, len(urls))
	for _, u := range urls {
		out = append(out, ElementReference{ImageURL: u})
	}
	return out
}

// TagsFromIDs wraps tag ids as element tags.
func TagsFromIDs(ids []string) []ElementTag {
	if len(ids) == 0 {
		return nil
	}
	out := make([]ElementTag, 0, len(ids))
	for _, id := range ids {
		out = append(out, ElementTag{TagID: id})
	}
	return out
}

// ListOptions pages list endpoints. Zero values are omitted.
type ListOptions struct {
	PageNum  int
	PageSize int
}

// Values encodes the paging query parameters.
func (o ListOptions) Values() url.Values {
	q := url.Values{}
	if o.PageNum > 0 {
		q.Set("pageNum", strconv.Itoa(o.PageNum))
	}
	if o.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(o.PageSize))
	}
	return q
}

// CreateElement registers a custom element.
func (c *Client) CreateElement(ctx context.Context, req CreateElementRequest) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return c.Call(ctx, OpCreateElement, CallOptions{Body: req})
}

// ListCustomElements lists the caller's custom elements.
func (c *Client) ListCustomElements(ctx context.Context, opts ListOptions) (*Response, error) {
	return c.Call(ctx, OpCustomElements, CallOptions{Query: opts.Values()})
}

// ListPresetElements lists the built-in elements.
func (c *Client) ListPresetElements(ctx context.Context, opts ListOptions) (*Response, error) {
	return c.Call(ctx, OpPresetsElements, CallOptions{Query: opts.Values()})
}

// DeleteElement removes a custom element.
func (c *Client) DeleteElement(ctx context.Context, elementID string) (*Response, error) {
	if strings.TrimSpace(elementID) == "" {
		return nil, fmt.Errorf("%w: element_id is required", ErrInvalidRequest)
	}
	return c.Call(ctx, OpDeleteElements, CallOptions{Body: map[string]string{"element_id": elementID}})
}

func validateMediaURL(field, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidRequest, field)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %s must be an absolute http(s) url", ErrInvalidRequest, field)
	}
	return nil
}
