package errors

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *DPCError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigRequired(field string) *DPCError {
	return New(CategoryConfig, SeverityFatal, "required configuration missing").
		WithContext("field", field)
}

func ConfigInvalid(cause error) *DPCError {
	return Wrap(cause, CategoryConfig, SeverityFatal, "configuration invalid")
}

func ValidationFailed(field, reason string) *DPCError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// Template errors

// TemplateNotFound reports a template identifier that does not resolve under
// the template root.
func TemplateNotFound(id string, cause error) *DPCError {
	return Wrap(cause, CategoryTemplate, SeverityError, "template not found").
		WithContext("template", id)
}

// TemplateRender reports a failure while parsing or evaluating a template,
// including failures raised by filters.
func TemplateRender(id string, cause error) *DPCError {
	return Wrap(cause, CategoryRender, SeverityError, "template render failed").
		WithContext("template", id)
}

// Processing errors

func SourceOutsideRoot(path, root string) *DPCError {
	return New(CategoryValidation, SeverityError, "source path is outside the input root").
		WithContext("path", path).
		WithContext("root", root)
}

func WriteFailed(path string, cause error) *DPCError {
	return Wrap(cause, CategoryFileSystem, SeverityError, "write output failed").
		WithContext("path", path)
}

func WalkFailed(root string, cause error) *DPCError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "walk input tree failed").
		WithContext("root", root)
}

// OutputConflict reports sources that would be written to the same output
// path. None of them is processed.
func OutputConflict(output string, sources []string) *DPCError {
	return New(CategoryValidation, SeverityError, "sources map to the same output").
		WithContext("output", output).
		WithContext("sources", append([]string(nil), sources...))
}

// HandlerFailed wraps an unclassified error returned by a handler.
func HandlerFailed(handler string, cause error) *DPCError {
	return Wrap(cause, CategoryHandler, SeverityError, "handler failed").
		WithContext("handler", handler)
}

// Internal errors

func InternalError(message string, cause error) *DPCError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
