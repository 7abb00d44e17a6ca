// Package plugin defines the capability interface that file handlers
// implement and a registry the directory walker dispatches through.
package plugin

import (
	"context"
	"fmt"
	"strings"
)

// Handler processes files of one input extension.
type Handler interface {
	// Metadata returns the handler's identity.
	Metadata() HandlerMetadata

	// InputExtension is the extension, without a dot, of files the handler
	// accepts.
	InputExtension() string

	// OutputExtension is the extension, without a dot, of files the handler
	// produces. It is empty when the handler strips the extension only.
	OutputExtension() string

	// Handle processes the file at path. copyOriginal reports whether the
	// walker should also copy the source file to the process root.
	Handle(ctx context.Context, path string) (copyOriginal bool, err error)
}

// OutputMapper is implemented by handlers that write a file derived from the
// source path. The walker uses it to find sources that claim the same output.
type OutputMapper interface {
	OutputPath(source string) (string, error)
}

// HandlerMetadata describes a handler's identity and capabilities.
type HandlerMetadata struct {
	// Name is the unique handler identifier (e.g., "template").
	Name string

	// Version is the semantic version (e.g., "v1.0.0").
	Version string

	// Type identifies the handler category.
	Type HandlerType

	// Description provides a human-readable summary of the handler's purpose.
	Description string

	// Capabilities lists optional features this handler uses.
	Capabilities []string
}

// String returns a human-readable representation of the handler metadata.
func (m HandlerMetadata) String() string {
	return fmt.Sprintf("%s@%s (%s)", m.Name, m.Version, m.Type)
}

// Validate checks if the handler metadata is valid.
func (m HandlerMetadata) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("handler name is required")
	}
	if m.Version == "" {
		return fmt.Errorf("handler version is required")
	}
	if !m.Type.IsValid() {
		return fmt.Errorf("invalid handler type: %s", m.Type)
	}
	return nil
}

// HasCapability reports whether the handler declares capability.
func (m HandlerMetadata) HasCapability(capability string) bool {
	for _, c := range m.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// NormalizeExtension lower-cases ext and strips a leading dot.
func NormalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
