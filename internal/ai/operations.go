package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/thekoushikdurgas/diary/internal/media"
	"github.com/thekoushikdurgas/diary/internal/model"
)

// Image is binary image output.
type Image struct {
	Data     []byte
	MimeType string
}

// AspectRatio is an image generation frame.
type AspectRatio string

const (
	AspectSquare    AspectRatio = "1:1"
	AspectPortrait  AspectRatio = "3:4"
	AspectLandscape AspectRatio = "4:3"
	AspectTall      AspectRatio = "9:16"
	AspectWide      AspectRatio = "16:9"
)

// Valid reports whether the ratio is supported by the image model.
func (a AspectRatio) Valid() bool {
	switch a {
	case AspectSquare, AspectPortrait, AspectLandscape, AspectTall, AspectWide:
		return true
	}
	return false
}

// SummaryKind tells the model what the summarized text is.
type SummaryKind string

const (
	SummaryText  SummaryKind = "text"
	SummaryAudio SummaryKind = "audio"
	SummaryURL   SummaryKind = "url"
)

// CategorizeInput is one item to categorize. Image types carry their payload
// in Data, or in Content as a data URI.
type CategorizeInput struct {
	Type     model.ContentType
	Content  string
	MimeType string
	Data     []byte
}

// Categorization is the model's category and tag suggestion.
type Categorization struct {
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

// OrganizeInput is one item of a batch organize request.
type OrganizeInput struct {
	ID      string
	Type    model.ContentType
	Content string
}

// OrganizedItem is the model's verdict for one requested id.
type OrganizedItem struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Priority int    `json:"priority"`
}

// Location scopes map retrieval for chat.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ChatRequest is a single chat turn.
type ChatRequest struct {
	Prompt      string
	DeepThought bool
	Location    *Location
}

// SourceKind says which retrieval tool produced a grounding source.
type SourceKind string

const (
	SourceWeb  SourceKind = "web"
	SourceMaps SourceKind = "maps"
)

// GroundingSource is a citation attached to a chat reply.
type GroundingSource struct {
	Kind  SourceKind `json:"kind"`
	URI   string     `json:"uri"`
	Title string     `json:"title,omitempty"`
}

// ChatReply is the model's answer and any citations.
type ChatReply struct {
	Text    string            `json:"text"`
	Sources []GroundingSource `json:"sources,omitempty"`
}

const (
	categorizeInstruction = "You organize a personal notebook. Assign the item one broad category " +
		"(for example Work, Personal, Ideas, Finance, Health, Travel) and at most 4 short lowercase tags. " +
		"Reply with JSON only."
	organizeInstruction = "You organize a personal notebook. For every item, choose one broad category " +
		"and a priority from 1 (most urgent) to 5 (least urgent). Return an entry for each item id you were given. " +
		"Reply with JSON only."
	organizeSnippetLimit = 500
)

// AnalyzeImage answers prompt about the image.
func (c *Client) AnalyzeImage(ctx context.Context, data []byte, mimeType, prompt string) (string, error) {
	const op = "analyzeImage"
	if err := requireImage(data, mimeType); err != nil {
		return "", err
	}
	if strings.TrimSpace(prompt) == "" {
		prompt = "Describe this image in detail."
	}
	text, _, err := c.generateText(ctx, op, c.cfg.ModelFast, &generateRequest{
		Contents: userContent(dataPart(data, mimeType), textPart(prompt)),
	})
	return text, err
}

// EditImage asks the image model to apply prompt to the image.
func (c *Client) EditImage(ctx context.Context, data []byte, mimeType, prompt string) (*Image, error) {
	const op = "editImage"
	if err := requireImage(data, mimeType); err != nil {
		return nil, err
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, model.NewValidationError("prompt", "edit instructions are required")
	}
	cand, err := c.generate(ctx, op, c.cfg.ModelImageEdit, &generateRequest{
		Contents:         userContent(dataPart(data, mimeType), textPart(prompt)),
		GenerationConfig: &generationConfig{ResponseModalities: []string{"IMAGE", "TEXT"}},
	})
	if err != nil {
		return nil, err
	}
	img, err := cand.firstImage()
	if err != nil {
		return nil, &model.AIError{Op: op, Err: err}
	}
	return img, nil
}

// GenerateImage renders a new image from prompt.
func (c *Client) GenerateImage(ctx context.Context, prompt string, ratio AspectRatio) (*Image, error) {
	const op = "generateImage"
	if strings.TrimSpace(prompt) == "" {
		return nil, model.NewValidationError("prompt", "prompt is required")
	}
	if ratio == "" {
		ratio = AspectSquare
	}
	if !ratio.Valid() {
		return nil, model.NewValidationError("aspectRatio", fmt.Sprintf("unsupported aspect ratio %q", ratio))
	}
	out, err := c.predict(ctx, op, c.cfg.ModelImageGen, &predictRequest{
		Instances:  []predictInstance{{Prompt: prompt}},
		Parameters: predictParameters{SampleCount: 1, AspectRatio: string(ratio), OutputMIMEType: "image/jpeg"},
	})
	if err != nil {
		return nil, err
	}
	for _, p := range out.Predictions {
		if p.BytesBase64Encoded == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(p.BytesBase64Encoded)
		if err != nil {
			return nil, &model.AIError{Op: op, Err: fmt.Errorf("decode image: %w", err)}
		}
		mt := p.MIMEType
		if mt == "" {
			mt = "image/jpeg"
		}
		return &Image{Data: data, MimeType: mt}, nil
	}
	return nil, &model.AIError{Op: op, Err: ErrNoImage}
}

// TranscribeAudio returns a plain-text transcript of the clip.
func (c *Client) TranscribeAudio(ctx context.Context, data []byte, mimeType string) (string, error) {
	const op = "transcribeAudio"
	if len(data) == 0 {
		return "", model.NewValidationError("audio", "audio data is empty")
	}
	if !strings.HasPrefix(mimeType, "audio/") {
		return "", model.NewValidationError("mimeType", "an audio mime type is required")
	}
	text, _, err := c.generateText(ctx, op, c.cfg.ModelFast, &generateRequest{
		Contents: userContent(
			dataPart(data, mimeType),
			textPart("Transcribe this audio verbatim. Reply with the transcript only."),
		),
	})
	return text, err
}

// SummarizeContent summarizes text. For SummaryURL the text is a link and the
// model reads the page through its search tool; nothing is fetched locally.
func (c *Client) SummarizeContent(ctx context.Context, text string, kind SummaryKind) (string, error) {
	const op = "summarizeContent"
	if strings.TrimSpace(text) == "" {
		return "", model.NewValidationError("content", "nothing to summarize")
	}
	req := &generateRequest{}
	switch kind {
	case SummaryText, "":
		req.Contents = userContent(textPart("Summarize the following note in a few sentences:\n\n" + text))
	case SummaryAudio:
		req.Contents = userContent(textPart("Summarize the following audio transcript in a few sentences:\n\n" + text))
	case SummaryURL:
		req.Contents = userContent(textPart("Read the web page at " + text + " and summarize it in a few sentences."))
		req.Tools = []tool{{GoogleSearch: &struct{}{}}}
	default:
		return "", model.NewValidationError("kind", fmt.Sprintf("unsupported summary kind %q", kind))
	}
	out, _, err := c.generateText(ctx, op, c.cfg.ModelFast, req)
	return out, err
}

// CategorizeAndTag suggests a category and up to MaxAITags lowercase tags.
// Only text, image and ai_image are accepted; url and audio items must be
// reduced to text by the caller first.
func (c *Client) CategorizeAndTag(ctx context.Context, in CategorizeInput) (*Categorization, error) {
	const op = "categorizeAndTag"
	req := &generateRequest{SystemInstruction: systemContent(categorizeInstruction)}

	switch in.Type {
	case model.TypeText:
		if strings.TrimSpace(in.Content) == "" {
			return nil, model.NewValidationError("content", "text is empty")
		}
		req.Contents = userContent(textPart("Categorize this note:\n\n" + in.Content))
	case model.TypeImage, model.TypeAIImage:
		data, mt := in.Data, in.MimeType
		if len(data) == 0 {
			var err error
			if data, mt, err = media.ParseDataURI(in.Content); err != nil {
				return nil, model.NewValidationError("content", "image payload must be a data URI")
			}
		}
		if err := requireImage(data, mt); err != nil {
			return nil, err
		}
		req.Contents = userContent(dataPart(data, mt), textPart("Categorize this image."))
	default:
		return nil, model.NewValidationError("type", fmt.Sprintf("cannot categorize %q content directly", in.Type))
	}

	var out Categorization
	if err := c.generateJSON(ctx, op, c.cfg.ModelFast, req, categorizeSchema, &out); err != nil {
		return nil, err
	}
	out.Category = strings.TrimSpace(out.Category)
	out.Tags = model.NormalizeTags(out.Tags)
	if len(out.Tags) > model.MaxAITags {
		out.Tags = out.Tags[:model.MaxAITags]
	}
	return &out, nil
}

// OrganizeContent assigns a category and priority to a batch of items.
// Entries whose id was not requested are dropped; requested ids the model
// skipped are simply absent from the result.
func (c *Client) OrganizeContent(ctx context.Context, items []OrganizeInput) ([]OrganizedItem, error) {
	const op = "organizeContent"
	if len(items) == 0 {
		return nil, nil
	}
	requested := make(map[string]bool, len(items))
	var b strings.Builder
	b.WriteString("Organize these items:\n")
	for _, it := range items {
		requested[it.ID] = true
		fmt.Fprintf(&b, "- id=%s type=%s content=%s\n", it.ID, it.Type, organizeSnippet(it))
	}

	var out struct {
		OrganizedItems []OrganizedItem `json:"organizedItems"`
	}
	err := c.generateJSON(ctx, op, c.cfg.ModelFast, &generateRequest{
		SystemInstruction: systemContent(organizeInstruction),
		Contents:          userContent(textPart(b.String())),
	}, organizeSchema, &out)
	if err != nil {
		return nil, err
	}

	result := make([]OrganizedItem, 0, len(out.OrganizedItems))
	seen := make(map[string]bool, len(out.OrganizedItems))
	for _, o := range out.OrganizedItems {
		if !requested[o.ID] || seen[o.ID] {
			continue
		}
		seen[o.ID] = true
		o.Category = strings.TrimSpace(o.Category)
		result = append(result, o)
	}
	return result, nil
}

// ChatResponse answers a free-form prompt. Web search is always available;
// a Location adds map retrieval around that point. DeepThought switches to
// the deep model with an extended thinking budget.
func (c *Client) ChatResponse(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	const op = "chat"
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, model.NewValidationError("prompt", "prompt is required")
	}
	modelName := c.cfg.ModelFast
	g := &generateRequest{
		Contents: userContent(textPart(req.Prompt)),
		Tools:    []tool{{GoogleSearch: &struct{}{}}},
	}
	if req.DeepThought {
		modelName = c.cfg.ModelDeep
		g.GenerationConfig = &generationConfig{ThinkingConfig: &thinkingConfig{ThinkingBudget: c.cfg.ThinkingBudget}}
	}
	if req.Location != nil {
		g.Tools = append(g.Tools, tool{GoogleMaps: &struct{}{}})
		g.ToolConfig = &toolConfig{RetrievalConfig: &retrievalConfig{
			LatLng: &latLng{Latitude: req.Location.Latitude, Longitude: req.Location.Longitude},
		}}
	}
	text, cand, err := c.generateText(ctx, op, modelName, g)
	if err != nil {
		return nil, err
	}
	return &ChatReply{Text: text, Sources: cand.sources()}, nil
}

func requireImage(data []byte, mimeType string) error {
	if len(data) == 0 {
		return model.NewValidationError("image", "image data is empty")
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return model.NewValidationError("mimeType", "an image mime type is required")
	}
	return nil
}

func organizeSnippet(it OrganizeInput) string {
	if media.IsDataURI(it.Content) || media.IsRef(it.Content) {
		return "[" + string(it.Type) + " attachment]"
	}
	s := strings.Join(strings.Fields(it.Content), " ")
	if len(s) > organizeSnippetLimit {
		cut := organizeSnippetLimit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return s
}
