package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"CollabBoard/internal/geom"
)

// ErrGenerationFailed wraps every failure of a diagram generation request.
var ErrGenerationFailed = errors.New("diagram generation failed")

// HTTPGenerator asks a diagram service for source. The service receives
// {"notes", "currentCode"} and answers {"code"} or {"error"}.
type HTTPGenerator struct {
	URL    string
	Client *http.Client
}

type generateRequest struct {
	Notes       string `json:"notes"`
	CurrentCode string `json:"currentCode"`
}

type generateResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func (g *HTTPGenerator) Generate(ctx context.Context, notes, current string) (string, error) {
	if strings.TrimSpace(notes) == "" {
		return "", fmt.Errorf("%w: notes are required", ErrGenerationFailed)
	}
	body, err := json.Marshal(generateRequest{Notes: notes, CurrentCode: current})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	var out generateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: status %d: %v", ErrGenerationFailed, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || out.Error != "" {
		return "", fmt.Errorf("%w: status %d: %s", ErrGenerationFailed, resp.StatusCode, out.Error)
	}
	code := StripFences(out.Code)
	if code == "" {
		return "", fmt.Errorf("%w: empty diagram", ErrGenerationFailed)
	}
	return code, nil
}

// StripFences removes markdown code fences a model may wrap source in.
func StripFences(s string) string {
	s = strings.ReplaceAll(s, "```mermaid", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

var diagramKinds = []string{
	"graph", "flowchart", "sequenceDiagram", "classDiagram", "stateDiagram",
	"stateDiagram-v2", "erDiagram", "journey", "gantt", "pie", "mindmap",
	"timeline", "gitGraph", "quadrantChart",
}

// DiagramKind returns the diagram type declared on the first non-comment
// line of source.
func DiagramKind(source string) (string, bool) {
	for _, line := range strings.Split(source, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "%%") {
			continue
		}
		head := strings.Fields(line)[0]
		head = strings.TrimSuffix(head, ";")
		for _, k := range diagramKinds {
			if head == k {
				return k, true
			}
		}
		return "", false
	}
	return "", false
}

// SourceRenderer is the built-in Renderer. It checks the diagram header and
// lays the source out as monospaced text; a full layout engine can be
// plugged in through the Renderer interface.
type SourceRenderer struct {
	Measurer geom.TextMeasurer
	FontSize float64
}

const (
	renderPadding   = 16.0
	placeholderSize = 200.0
	monoFamily      = "monospace"
)

func (r SourceRenderer) Render(ctx context.Context, source string) (Rendered, error) {
	if err := ctx.Err(); err != nil {
		return Rendered{}, err
	}
	size := r.FontSize
	if size <= 0 {
		size = 14
	}
	m := r.Measurer
	if m == nil {
		m = geom.MonoMeasurer{}
	}
	if _, ok := DiagramKind(source); !ok {
		return Rendered{
			Markup: placeholder("Invalid diagram"),
			Width:  placeholderSize,
			Height: placeholderSize / 2,
			Failed: true,
		}, nil
	}

	text := m.MeasureText(source, size, monoFamily)
	w, h := text.Width+renderPadding*2, text.Height+renderPadding*2
	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f">`, w, h)
	fmt.Fprintf(&sb, `<text font-family="%s" font-size="%.0f">`, monoFamily, size)
	for i, line := range strings.Split(source, "\n") {
		y := renderPadding + size + float64(i)*size*geom.LineHeight
		fmt.Fprintf(&sb, `<tspan x="%.0f" y="%.2f">%s</tspan>`, renderPadding, y, html.EscapeString(line))
	}
	sb.WriteString(`</text></svg>`)
	return Rendered{Markup: sb.String(), Width: w, Height: h}, nil
}

func placeholder(msg string) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f">`+
		`<rect width="100%%" height="100%%" fill="none" stroke="#dc2626" stroke-dasharray="6 4"/>`+
		`<text x="50%%" y="50%%" text-anchor="middle" fill="#dc2626">%s</text></svg>`,
		placeholderSize, placeholderSize/2, html.EscapeString(msg))
}

// DiagramBoard is the part of the engine the diagram service drives.
type DiagramBoard interface {
	AddDiagram(code string) string
	SetMermaidCode(id, code string)
	ResizeMermaid(id string, width, height float64)
}

// DiagramService glues generation and rendering to the board.
type DiagramService struct {
	Board     DiagramBoard
	Generator Generator
	Renderer  Renderer
	Timeout   time.Duration
}

// Create generates a diagram from notes and places it on the board. On
// failure nothing is placed and the error wraps ErrGenerationFailed.
func (s *DiagramService) Create(ctx context.Context, notes string) (string, error) {
	code, err := s.generate(ctx, notes, "")
	if err != nil {
		return "", err
	}
	id := s.Board.AddDiagram(code)
	s.Render(ctx, id, code)
	return id, nil
}

// Update regenerates the diagram id from notes and its current source.
func (s *DiagramService) Update(ctx context.Context, id, notes, current string) error {
	code, err := s.generate(ctx, notes, current)
	if err != nil {
		return err
	}
	s.Board.SetMermaidCode(id, code)
	s.Render(ctx, id, code)
	return nil
}

func (s *DiagramService) generate(ctx context.Context, notes, current string) (string, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	code, err := s.Generator.Generate(ctx, notes, current)
	if err != nil {
		log.Printf("[DIAGRAM] Generation failed: %v", err)
		if !errors.Is(err, ErrGenerationFailed) {
			err = fmt.Errorf("%w: %v", ErrGenerationFailed, err)
		}
		return "", err
	}
	return code, nil
}

// Render renders source and feeds its size back to the element. Source that
// does not parse keeps the element's size and gets a placeholder.
func (s *DiagramService) Render(ctx context.Context, id, source string) Rendered {
	if s.Renderer == nil {
		return Rendered{}
	}
	out, err := s.Renderer.Render(ctx, source)
	if err != nil {
		log.Printf("[DIAGRAM] Rendering %s failed: %v", id, err)
		return Rendered{Markup: placeholder("Render failed"), Failed: true}
	}
	if !out.Failed {
		s.Board.ResizeMermaid(id, out.Width, out.Height)
	}
	return out
}
