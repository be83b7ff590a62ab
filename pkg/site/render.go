package site

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"site-cms/pkg/models"
	"site-cms/pkg/sections"
	"site-cms/pkg/services"
)

//go:embed templates/*.html
var templateFS embed.FS

const defaultInterval = 6

// Renderer turns pages into HTML. It is safe for concurrent use.
type Renderer struct {
	tmpl *template.Template
	md   *services.Markdown
	now  func() time.Time
}

func NewRenderer(md *services.Markdown) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse site templates: %w", err)
	}
	if md == nil {
		md = services.NewMarkdown()
	}
	return &Renderer{tmpl: tmpl, md: md, now: time.Now}, nil
}

// Chrome is what the layout needs besides the page itself.
type Chrome struct {
	SiteName    string
	Nav         []models.NavLink
	CurrentPath string
	Preview     bool
}

type layoutData struct {
	Chrome
	Page     *Page
	Sections []template.HTML
	Year     int
}

// Render writes a full HTML document for page.
func (r *Renderer) Render(w io.Writer, chrome Chrome, page *Page) error {
	data := layoutData{Chrome: chrome, Page: page, Year: r.now().Year()}
	for i, content := range page.Sections {
		html, err := r.RenderSection(content)
		if err != nil {
			return fmt.Errorf("render section %d of %q: %w", i, page.Slug, err)
		}
		data.Sections = append(data.Sections, html)
	}
	return r.tmpl.ExecuteTemplate(w, "layout", data)
}

// RenderSection renders one section fragment.
func (r *Renderer) RenderSection(content sections.Content) (template.HTML, error) {
	view, err := r.view(content)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "section-"+content.SectionType(), view); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// RenderArticle writes the preview of a blog post or story.
func (r *Renderer) RenderArticle(w io.Writer, item models.ContentItem) error {
	body, err := r.md.Render(item.Content)
	if err != nil {
		return err
	}
	return r.tmpl.ExecuteTemplate(w, "article", struct {
		Item  models.ContentItem
		Badge models.Badge
		Body  template.HTML
	}{item, models.BadgeFor(item.Status), body})
}

func (r *Renderer) view(content sections.Content) (interface{}, error) {
	switch c := content.(type) {
	case sections.RichTextContent:
		html, err := r.md.Render(c.Markdown)
		if err != nil {
			return nil, err
		}
		return struct {
			Heading string
			HTML    template.HTML
		}{c.Heading, html}, nil
	case sections.EcosystemContent:
		return ecosystemView(c), nil
	case sections.CareersContent:
		return careersView(c), nil
	case sections.TestimonialsContent:
		if c.IntervalSeconds <= 0 {
			c.IntervalSeconds = defaultInterval
		}
		return c, nil
	default:
		return content, nil
	}
}

type placedNode struct {
	sections.EcosystemNode
	X string
	Y string
}

// ecosystemView places the nodes evenly on a circle around the hub, starting
// at twelve o'clock. Coordinates are percentages of the diagram box.
func ecosystemView(c sections.EcosystemContent) interface{} {
	nodes := make([]placedNode, len(c.Nodes))
	for i, n := range c.Nodes {
		angle := 2*math.Pi*float64(i)/float64(len(c.Nodes)) - math.Pi/2
		nodes[i] = placedNode{
			EcosystemNode: n,
			X:             percent(50 + 40*math.Cos(angle)),
			Y:             percent(50 + 40*math.Sin(angle)),
		}
	}
	return struct {
		Heading string
		Intro   string
		Hub     sections.EcosystemNode
		Nodes   []placedNode
	}{c.Heading, c.Intro, c.Hub, nodes}
}

func percent(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}

type team struct {
	Name     string
	Openings []sections.Opening
}

// careersView groups openings by team, teams sorted by name. Openings
// without a team go under "General".
func careersView(c sections.CareersContent) interface{} {
	byTeam := map[string][]sections.Opening{}
	for _, o := range c.Openings {
		name := strings.TrimSpace(o.Team)
		if name == "" {
			name = "General"
		}
		byTeam[name] = append(byTeam[name], o)
	}
	teams := make([]team, 0, len(byTeam))
	for name, openings := range byTeam {
		teams = append(teams, team{Name: name, Openings: openings})
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].Name < teams[j].Name })

	empty := c.EmptyMessage
	if empty == "" {
		empty = "There are no open positions right now."
	}
	return struct {
		Heading      string
		Intro        string
		Teams        []team
		EmptyMessage string
	}{c.Heading, c.Intro, teams, empty}
}
