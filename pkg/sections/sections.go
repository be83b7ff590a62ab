// Package sections defines the typed content of CMS modules and landing page
// sections. Content is keyed by type and validated against an embedded JSON
// schema before it is decoded.
package sections

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	TypeHero         = "hero"
	TypeEcosystem    = "ecosystem"
	TypeTestimonials = "testimonials"
	TypeCareers      = "careers"
	TypeRichText     = "richtext"
)

var (
	ErrUnknownModuleType = errors.New("unknown module type")
	ErrInvalidContent    = errors.New("invalid module content")
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Content is implemented by every section payload.
type Content interface {
	SectionType() string
}

type CTA struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

type HeroContent struct {
	Eyebrow    string `json:"eyebrow,omitempty"`
	Heading    string `json:"heading"`
	Subheading string `json:"subheading,omitempty"`
	Image      string `json:"image,omitempty"`
	Primary    *CTA   `json:"primary,omitempty"`
	Secondary  *CTA   `json:"secondary,omitempty"`
}

type EcosystemNode struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Href        string `json:"href,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

type EcosystemContent struct {
	Heading string          `json:"heading"`
	Intro   string          `json:"intro,omitempty"`
	Hub     EcosystemNode   `json:"hub"`
	Nodes   []EcosystemNode `json:"nodes"`
}

type Testimonial struct {
	Quote   string `json:"quote"`
	Author  string `json:"author"`
	Role    string `json:"role,omitempty"`
	Company string `json:"company,omitempty"`
	Avatar  string `json:"avatar,omitempty"`
}

type TestimonialsContent struct {
	Heading         string        `json:"heading,omitempty"`
	IntervalSeconds int           `json:"intervalSeconds,omitempty"`
	Items           []Testimonial `json:"items"`
}

type Opening struct {
	Title    string `json:"title"`
	Team     string `json:"team,omitempty"`
	Location string `json:"location,omitempty"`
	Type     string `json:"type,omitempty"`
	ApplyURL string `json:"applyUrl"`
}

type CareersContent struct {
	Heading      string    `json:"heading"`
	Intro        string    `json:"intro,omitempty"`
	EmptyMessage string    `json:"emptyMessage,omitempty"`
	Openings     []Opening `json:"openings,omitempty"`
}

type RichTextContent struct {
	Heading  string `json:"heading,omitempty"`
	Markdown string `json:"markdown"`
}

func (HeroContent) SectionType() string         { return TypeHero }
func (EcosystemContent) SectionType() string    { return TypeEcosystem }
func (TestimonialsContent) SectionType() string { return TypeTestimonials }
func (CareersContent) SectionType() string      { return TypeCareers }
func (RichTextContent) SectionType() string     { return TypeRichText }

// Issue is a single schema violation.
type Issue struct {
	Location string `json:"location"`
	Message  string `json:"message"`
}

// ValidationError lists the schema violations of one payload. It matches
// ErrInvalidContent with errors.Is.
type ValidationError struct {
	Type   string
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		loc := issue.Location
		if loc == "" {
			loc = "/"
		}
		parts[i] = loc + ": " + issue.Message
	}
	return fmt.Sprintf("%s content: %s", e.Type, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidContent }

type entry struct {
	schema *jsonschema.Schema
	decode func([]byte) (Content, error)
}

var registry = map[string]entry{
	TypeHero:         {schema: mustCompile(TypeHero), decode: decodeAs[HeroContent]},
	TypeEcosystem:    {schema: mustCompile(TypeEcosystem), decode: decodeAs[EcosystemContent]},
	TypeTestimonials: {schema: mustCompile(TypeTestimonials), decode: decodeAs[TestimonialsContent]},
	TypeCareers:      {schema: mustCompile(TypeCareers), decode: decodeAs[CareersContent]},
	TypeRichText:     {schema: mustCompile(TypeRichText), decode: decodeAs[RichTextContent]},
}

// Types returns the registered section types, sorted.
func Types() []string {
	out := make([]string, 0, len(registry))
	for t := range registry {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Known reports whether a type has a registered schema.
func Known(sectionType string) bool {
	_, ok := registry[sectionType]
	return ok
}

// Validate checks raw content against the schema of its type.
func Validate(sectionType string, raw []byte) error {
	e, ok := registry[sectionType]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownModuleType, sectionType)
	}
	return validate(sectionType, e.schema, raw)
}

// Decode validates raw content and returns the typed payload.
func Decode(sectionType string, raw []byte) (Content, error) {
	e, ok := registry[sectionType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModuleType, sectionType)
	}
	if err := validate(sectionType, e.schema, raw); err != nil {
		return nil, err
	}
	return e.decode(raw)
}

// DecodeMap is Decode for content read from yaml or toml.
func DecodeMap(sectionType string, content map[string]interface{}) (Content, error) {
	if content == nil {
		content = map[string]interface{}{}
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	return Decode(sectionType, raw)
}

// Normalize accepts content as a JSON object or as JSON text typed into the
// admin editor and returns the compact JSON object.
func Normalize(content json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: content is empty", ErrInvalidContent)
	}
	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidContent, err)
		}
		trimmed = bytes.TrimSpace([]byte(text))
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("%w: content is not valid JSON", ErrInvalidContent)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	return buf.Bytes(), nil
}

func validate(sectionType string, schema *jsonschema.Schema, raw []byte) error {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return &ValidationError{Type: sectionType, Issues: []Issue{{Message: "content is not valid JSON"}}}
	}
	if err := schema.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return &ValidationError{Type: sectionType, Issues: collectIssues(verr)}
		}
		return fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	return nil
}

func collectIssues(err *jsonschema.ValidationError) []Issue {
	var issues []Issue
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if len(node.Causes) == 0 {
			issues = append(issues, Issue{
				Location: strings.TrimSpace(node.InstanceLocation),
				Message:  strings.TrimSpace(node.Message),
			})
			return
		}
		for _, cause := range node.Causes {
			walk(cause)
		}
	}
	walk(err)
	return issues
}

func decodeAs[T Content](raw []byte) (Content, error) {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	return out, nil
}

func mustCompile(sectionType string) *jsonschema.Schema {
	name := "schemas/" + sectionType + ".json"
	data, err := schemaFS.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("sections: read %s: %v", name, err))
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
		panic(fmt.Sprintf("sections: add %s: %v", name, err))
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("sections: compile %s: %v", name, err))
	}
	return schema
}
