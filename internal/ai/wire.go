package ai

import (
	"encoding/base64"
	"strings"
)

// generateContent request/response bodies, JSON field names as the REST API
// defines them.

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Tools             []tool            `json:"tools,omitempty"`
	ToolConfig        *toolConfig       `json:"toolConfig,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type tool struct {
	GoogleSearch *struct{} `json:"googleSearch,omitempty"`
	GoogleMaps   *struct{} `json:"googleMaps,omitempty"`
}

type toolConfig struct {
	RetrievalConfig *retrievalConfig `json:"retrievalConfig,omitempty"`
}

type retrievalConfig struct {
	LatLng *latLng `json:"latLng,omitempty"`
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type generationConfig struct {
	ResponseMIMEType   string          `json:"responseMimeType,omitempty"`
	ResponseSchema     map[string]any  `json:"responseSchema,omitempty"`
	ResponseModalities []string        `json:"responseModalities,omitempty"`
	ThinkingConfig     *thinkingConfig `json:"thinkingConfig,omitempty"`
}

type thinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type generateResponse struct {
	Candidates     []candidate     `json:"candidates"`
	PromptFeedback *promptFeedback `json:"promptFeedback,omitempty"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason"`
}

type candidate struct {
	Content           content            `json:"content"`
	FinishReason      string             `json:"finishReason"`
	GroundingMetadata *groundingMetadata `json:"groundingMetadata,omitempty"`
}

type groundingMetadata struct {
	GroundingChunks []groundingChunk `json:"groundingChunks"`
}

type groundingChunk struct {
	Web  *groundingRef `json:"web,omitempty"`
	Maps *groundingRef `json:"maps,omitempty"`
}

type groundingRef struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

type apiErrorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Imagen :predict bodies.

type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParameters `json:"parameters"`
}

type predictInstance struct {
	Prompt string `json:"prompt"`
}

type predictParameters struct {
	SampleCount    int    `json:"sampleCount"`
	AspectRatio    string `json:"aspectRatio,omitempty"`
	OutputMIMEType string `json:"outputMimeType,omitempty"`
}

type predictResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MIMEType           string `json:"mimeType"`
	} `json:"predictions"`
}

func textPart(s string) part { return part{Text: s} }

func dataPart(data []byte, mimeType string) part {
	return part{InlineData: &inlineData{MIMEType: mimeType, Data: base64.StdEncoding.EncodeToString(data)}}
}

func userContent(parts ...part) []content {
	return []content{{Role: "user", Parts: parts}}
}

func systemContent(s string) *content {
	return &content{Parts: []part{textPart(s)}}
}

func (c *candidate) text() string {
	var b strings.Builder
	for _, p := range c.Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// firstImage returns the first inline image part of the reply.
func (c *candidate) firstImage() (*Image, error) {
	for _, p := range c.Content.Parts {
		if p.InlineData == nil || !strings.HasPrefix(p.InlineData.MIMEType, "image/") {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
		if err != nil {
			return nil, err
		}
		return &Image{Data: data, MimeType: p.InlineData.MIMEType}, nil
	}
	return nil, ErrNoImage
}

func (c *candidate) sources() []GroundingSource {
	if c.GroundingMetadata == nil {
		return nil
	}
	var out []GroundingSource
	seen := map[string]bool{}
	for _, ch := range c.GroundingMetadata.GroundingChunks {
		ref, kind := ch.Web, SourceWeb
		if ref == nil {
			ref, kind = ch.Maps, SourceMaps
		}
		if ref == nil || ref.URI == "" || seen[ref.URI] {
			continue
		}
		seen[ref.URI] = true
		out = append(out, GroundingSource{Kind: kind, URI: ref.URI, Title: ref.Title})
	}
	return out
}
