//go:build !notidy

package normalize

func inProcess(o options) Normalizer {
	return newHTML(o)
}
