package figma

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/fe-devtools/devflow/internal/errors"
	"github.com/fe-devtools/devflow/internal/httpclient"
	"github.com/fe-devtools/devflow/internal/logger"
	"github.com/fe-devtools/devflow/internal/models"
	"github.com/fe-devtools/devflow/internal/regex"
)

// SwatchName is the node name that marks a color sample in the design file.
const SwatchName = "Swatch"

type FigmaService struct {
	baseURL string
	token   string
	client  httpclient.HTTPClient
}

func NewFigmaService(baseURL, token string, client httpclient.HTTPClient) *FigmaService {
	return &FigmaService{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  client,
	}
}

type (
	Color struct {
		R float64 `json:"r"`
		G float64 `json:"g"`
		B float64 `json:"b"`
		A float64 `json:"a"`
	}

	Paint struct {
		Type    string   `json:"type"`
		Visible *bool    `json:"visible,omitempty"`
		Opacity *float64 `json:"opacity,omitempty"`
		Color   *Color   `json:"color,omitempty"`
	}

	Node struct {
		ID       string  `json:"id"`
		Name     string  `json:"name"`
		Type     string  `json:"type"`
		Fills    []Paint `json:"fills,omitempty"`
		Children []Node  `json:"children,omitempty"`
	}

	nodesResponse struct {
		Nodes map[string]*struct {
			Document Node `json:"document"`
		} `json:"nodes"`
	}
)

// Colors fetches nodeIDs from fileID and returns the color tokens of every
// swatch below them, in document order.
func (s *FigmaService) Colors(ctx context.Context, fileID string, nodeIDs []string) ([]models.ColorToken, error) {
	log := logger.FromContext(ctx)

	q := url.Values{}
	q.Set("ids", strings.Join(nodeIDs, ","))
	reqURL := fmt.Sprintf("%s/v1/files/%s/nodes?%s", s.baseURL, url.PathEscape(fileID), q.Encode())

	log.Debug("fetching figma nodes", "file", fileID, "nodes", len(nodeIDs))

	var resp nodesResponse
	err := httpclient.DoJSON(ctx, s.client, httpclient.Request{
		Method: http.MethodGet,
		URL:    reqURL,
		Header: http.Header{"X-Figma-Token": []string{s.token}},
	}, &resp)
	if err != nil {
		appErr := errors.ErrFigmaRequest.WithError(err).WithContext("file", fileID)
		var statusErr *httpclient.StatusError
		if stderrors.As(err, &statusErr) {
			appErr = appErr.WithContext("status", statusErr.StatusCode)
		}
		return nil, appErr
	}

	var roots []Node
	for _, id := range nodeIDs {
		entry, ok := resp.Nodes[id]
		if !ok || entry == nil {
			log.Warn("figma node missing from response", "node", id)
			continue
		}
		roots = append(roots, entry.Document)
	}

	tokens := ExtractColors(roots...)
	log.Debug("figma colors extracted", "count", len(tokens))
	return tokens, nil
}

// ExtractColors walks roots and turns every Swatch node into a token. Names
// are built from the ancestors below each root; repeated names get -2, -3...
func ExtractColors(roots ...Node) []models.ColorToken {
	var tokens []models.ColorToken
	seen := make(map[string]int)

	for _, root := range roots {
		walk(root, nil, func(swatch Node, path []string) {
			paint, ok := firstSolidFill(swatch)
			if !ok {
				return
			}
			token := toToken(paint)
			name := tokenName(path)
			seen[name]++
			if n := seen[name]; n > 1 {
				name = fmt.Sprintf("%s-%d", name, n)
			}
			token.Name = name
			tokens = append(tokens, token)
		})
	}
	return tokens
}

func walk(n Node, path []string, visit func(Node, []string)) {
	for _, child := range n.Children {
		if child.Name == SwatchName {
			visit(child, path)
			continue
		}
		walk(child, append(append([]string(nil), path...), child.Name), visit)
	}
}

func firstSolidFill(n Node) (Paint, bool) {
	for _, p := range n.Fills {
		if p.Type == "SOLID" && p.Color != nil && (p.Visible == nil || *p.Visible) {
			return p, true
		}
	}
	for _, child := range n.Children {
		if p, ok := firstSolidFill(child); ok {
			return p, true
		}
	}
	return Paint{}, false
}

func toToken(p Paint) models.ColorToken {
	alpha := p.Color.A
	if p.Opacity != nil {
		alpha *= *p.Opacity
	}
	alpha = math.Round(alpha*1000) / 1000

	t := models.ColorToken{
		R: channel(p.Color.R),
		G: channel(p.Color.G),
		B: channel(p.Color.B),
		A: alpha,
	}
	t.Hex = fmt.Sprintf("#%02X%02X%02X", t.R, t.G, t.B)
	if alpha < 1 {
		t.Hex += fmt.Sprintf("%02X", channel(alpha))
	}
	return t
}

func channel(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

func tokenName(path []string) string {
	var parts []string
	for _, p := range path {
		if k := Kebab(p); k != "" {
			parts = append(parts, k)
		}
	}
	if len(parts) == 0 {
		return "color"
	}
	return strings.Join(parts, "-")
}

// Kebab lowercases s and collapses every run of non-alphanumerics into one dash.
func Kebab(s string) string {
	return strings.Trim(regex.NonAlphaNum.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// FormatCSS renders tokens as CSS custom properties.
func FormatCSS(tokens []models.ColorToken) string {
	var sb strings.Builder
	sb.WriteString(":root {\n")
	for _, t := range tokens {
		fmt.Fprintf(&sb, "  --%s: %s;\n", t.Name, t.Hex)
	}
	sb.WriteString("}\n")
	return sb.String()
}
