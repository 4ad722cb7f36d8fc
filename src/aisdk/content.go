package aisdk

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// ContentType represents the type of content in a multimodal message
type ContentType string

const (
	ContentTypeText     ContentType = "text"
	ContentTypeImageURL ContentType = "image_url"
)

// ContentPart is one element of a multimodal user message.
type ContentPart struct {
	Type     ContentType `json:"type"`
	Text     string      `json:"text,omitempty"`
	ImageURL *ImageURL   `json:"image_url,omitempty"`
}

// ImageURL points at an image, either remote or as a data: URL.
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// NewTextPart creates a text content part
func NewTextPart(text string) ContentPart {
	return ContentPart{Type: ContentTypeText, Text: text}
}

// NewImagePart creates an image content part referencing url
func NewImagePart(url string) ContentPart {
	return ContentPart{Type: ContentTypeImageURL, ImageURL: &ImageURL{URL: url}}
}

// NewImagePartFromBytes embeds raw image bytes as a base64 data URL.
func NewImagePartFromBytes(data []byte, mimeType string) ContentPart {
	if mimeType == "" {
		mimeType = "image/png"
	}
	return NewImagePart(fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data)))
}

// NewUserMessage creates a plain text user message.
func NewUserMessage(text string) *Message {
	return &Message{Role: RoleUser, Content: text}
}

// NewToolMessage creates a tool result message answering callID.
func NewToolMessage(callID, name, content string) *Message {
	return &Message{Role: RoleTool, ToolCallID: callID, Name: name, Content: content}
}

// Text returns the textual content of the message, joining text parts.
func (m *Message) Text() string {
	if len(m.Parts) == 0 {
		return m.Content
	}
	var sb strings.Builder
	sb.WriteString(m.Content)
	for _, p := range m.Parts {
		if p.Type != ContentTypeText || p.Text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// HasImages reports whether the message carries any image part.
func (m *Message) HasImages() bool {
	for _, p := range m.Parts {
		if p.Type == ContentTypeImageURL {
			return true
		}
	}
	return false
}

type messageAlias Message

type wireMessage struct {
	*messageAlias
	Content any `json:"content"`
}

// MarshalJSON emits the content array form when the message has parts.
func (m Message) MarshalJSON() ([]byte, error) {
	w := wireMessage{messageAlias: (*messageAlias)(&m)}
	switch {
	case len(m.Parts) > 0:
		parts := m.Parts
		if m.Content != "" {
			parts = append([]ContentPart{NewTextPart(m.Content)}, m.Parts...)
		}
		w.Content = parts
	case m.Content == "" && len(m.ToolCalls) > 0:
		w.Content = nil
	default:
		w.Content = m.Content
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts content as a string, null, or an array of parts.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w struct {
		*messageAlias
		Content json.RawMessage `json:"content"`
	}
	w.messageAlias = (*messageAlias)(m)
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	raw := bytes.TrimSpace(w.Content)
	m.Content = ""
	m.Parts = nil
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '[':
		if err := json.Unmarshal(raw, &m.Parts); err != nil {
			return fmt.Errorf("failed to decode content parts: %w", err)
		}
	default:
		if err := json.Unmarshal(raw, &m.Content); err != nil {
			return fmt.Errorf("failed to decode content: %w", err)
		}
	}
	return nil
}
