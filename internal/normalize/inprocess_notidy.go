//go:build notidy

package normalize

// Builds tagged notidy carry no in-process normalizer.
func inProcess(options) Normalizer {
	return nil
}
