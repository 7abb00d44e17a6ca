package handler

import (
	"path/filepath"
	"strings"

	dpcerrors "git.home.luguber.info/inful/dirprocess/internal/errors"
	"git.home.luguber.info/inful/dirprocess/internal/fsutil"
)

// relativeSource returns source relative to inputRoot.
func relativeSource(inputRoot, source string) (string, error) {
	root := filepath.Clean(inputRoot)
	if !fsutil.Within(root, source) {
		return "", dpcerrors.SourceOutsideRoot(source, inputRoot)
	}
	rel, err := filepath.Rel(root, filepath.Clean(source))
	if err != nil || rel == "." {
		return "", dpcerrors.SourceOutsideRoot(source, inputRoot)
	}
	return rel, nil
}

// TemplateID returns the template identifier for source: its path relative to
// inputRoot with forward slashes and a leading slash, e.g. "/a/b.tpl".
func TemplateID(inputRoot, source string) (string, error) {
	rel, err := relativeSource(inputRoot, source)
	if err != nil {
		return "", err
	}
	return "/" + filepath.ToSlash(rel), nil
}

// OutputPath maps source from inputRoot to processRoot with its final
// extension removed. When outputExt is set and the stripped name does not
// already end in it, it is appended:
//
//	/in/a/b.tpl          -> /out/a/b       (outputExt "")
//	/in/a/b.tpl          -> /out/a/b.html  (outputExt "html")
//	/in/index.html.twig  -> /out/index.html
func OutputPath(inputRoot, processRoot, source, outputExt string) (string, error) {
	rel, err := relativeSource(inputRoot, source)
	if err != nil {
		return "", err
	}

	dir, base := filepath.Split(rel)
	if stripped := strings.TrimSuffix(base, filepath.Ext(base)); stripped != "" {
		base = stripped
	}

	ext := strings.TrimPrefix(outputExt, ".")
	if ext != "" && !strings.EqualFold(filepath.Ext(base), "."+ext) {
		base += "." + ext
	}

	return filepath.Join(filepath.Clean(processRoot), dir, base), nil
}
