package models

// SiteConfig is the landing page definition file.
type SiteConfig struct {
	Name  string        `yaml:"name" toml:"name"`
	Nav   []NavLink     `yaml:"nav" toml:"nav"`
	Pages []LandingPage `yaml:"pages" toml:"pages"`
}

type NavLink struct {
	Label string `yaml:"label" toml:"label"`
	Href  string `yaml:"href" toml:"href"`
}

type LandingPage struct {
	Slug        string    `yaml:"slug" toml:"slug"`
	Title       string    `yaml:"title" toml:"title"`
	Description string    `yaml:"description" toml:"description"`
	Sections    []Section `yaml:"sections" toml:"sections"`
}

// Section is one presentational block of a landing page. Content has the
// same shape as the content of a CMS module of the same type.
type Section struct {
	Type    string                 `yaml:"type" toml:"type"`
	Content map[string]interface{} `yaml:"content" toml:"content"`
}
