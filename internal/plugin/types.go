package plugin

// HandlerType identifies the category of handler.
type HandlerType string

const (
	// HandlerTypeRender produces a new file from a source, such as a rendered template.
	HandlerTypeRender HandlerType = "render"

	// HandlerTypeTransform rewrites a file in place before it is copied.
	HandlerTypeTransform HandlerType = "transform"
)

// IsValid returns true if the handler type is recognized.
func (t HandlerType) IsValid() bool {
	switch t {
	case HandlerTypeRender, HandlerTypeTransform:
		return true
	default:
		return false
	}
}

// String returns the string representation of the handler type.
func (t HandlerType) String() string {
	return string(t)
}

// Capabilities a handler may declare in its metadata.
const (
	CapabilityMarkdown  = "markdown"
	CapabilityNormalize = "normalize"
	CapabilityFilters   = "filters"
)
