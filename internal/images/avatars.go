package images

import "sync"

// Section is the garment section an avatar is dressed for.
type Section string

const (
	SectionUpper Section = "upper"
	SectionLower Section = "lower"
)

// Sections lists the garment sections in display order.
var Sections = []Section{SectionUpper, SectionLower}

// ParseSection parses "upper" or "lower".
func ParseSection(s string) (Section, bool) {
	switch Section(s) {
	case SectionUpper, SectionLower:
		return Section(s), true
	}
	return "", false
}

// AvatarOption is a selectable avatar model.
type AvatarOption struct {
	ID      string
	Label   string
	Image   string
	Section Section
}

// DefaultAvatars is the built-in avatar catalog.
var DefaultAvatars = []AvatarOption{
	{ID: "men", Label: "Men", Image: "https://images.pexels.com/photos/2379005/pexels-photo-2379005.jpeg?w=200&h=200&fit=crop", Section: SectionUpper},
	{ID: "women", Label: "Women", Image: "https://images.pexels.com/photos/1239291/pexels-photo-1239291.jpeg?w=200&h=200&fit=crop", Section: SectionUpper},
	{ID: "boy", Label: "Boy", Image: "https://images.pexels.com/photos/35537/child-children-girl-happy.jpg?w=200&h=200&fit=crop", Section: SectionUpper},
	{ID: "girl", Label: "Girl", Image: "https://images.pexels.com/photos/36029/aroni-arsa-children-little.jpg?w=200&h=200&fit=crop", Section: SectionUpper},
}

// AvatarCatalog is a static list of avatars with per-avatar custom images.
// Entries are never removed; a custom image only shadows the default one.
type AvatarCatalog struct {
	mu      sync.RWMutex
	options []AvatarOption
	custom  map[string]string
}

// NewAvatarCatalog creates a catalog. With no options it uses DefaultAvatars.
func NewAvatarCatalog(options ...AvatarOption) *AvatarCatalog {
	if len(options) == 0 {
		options = DefaultAvatars
	}
	return &AvatarCatalog{
		options: append([]AvatarOption(nil), options...),
		custom:  make(map[string]string),
	}
}

// Get returns the avatar with its custom image applied.
func (c *AvatarCatalog) Get(id string) (AvatarOption, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, opt := range c.options {
		if opt.ID == id {
			return c.apply(opt), true
		}
	}
	return AvatarOption{}, false
}

// All returns every avatar in catalog order, custom images applied.
func (c *AvatarCatalog) All() []AvatarOption {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]AvatarOption, len(c.options))
	for i, opt := range c.options {
		out[i] = c.apply(opt)
	}
	return out
}

// BySection returns the avatars for one garment section.
func (c *AvatarCatalog) BySection(section Section) []AvatarOption {
	var out []AvatarOption
	for _, opt := range c.All() {
		if opt.Section == section {
			out = append(out, opt)
		}
	}
	return out
}

// SetCustomImage overrides the image of an avatar. Returns false for an
// unknown avatar id.
func (c *AvatarCatalog) SetCustomImage(id, ref string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, opt := range c.options {
		if opt.ID == id {
			c.custom[id] = ref
			return true
		}
	}
	return false
}

// HasCustomImage reports whether the avatar's image is user supplied.
func (c *AvatarCatalog) HasCustomImage(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.custom[id]
	return ok
}

func (c *AvatarCatalog) apply(opt AvatarOption) AvatarOption {
	if ref, ok := c.custom[opt.ID]; ok {
		opt.Image = ref
	}
	return opt
}
