package model

import "strings"

// PageTarget is one page compared between the reference and the candidate
// environment. Path identifies the page; the URLs are derived by joining each
// environment's base URL with Path. A PageTarget is immutable once built.
type PageTarget struct {
	// Path is the page path relative to the environment base URL, e.g. "/pricing".
	Path string `json:"path"`

	// ReferenceURL is the absolute URL of the page in the reference environment.
	ReferenceURL string `json:"reference_url"`

	// CandidateURL is the absolute URL of the page in the candidate environment.
	CandidateURL string `json:"candidate_url"`
}

// NewPageTarget builds a PageTarget for path from the two environment base URLs.
func NewPageTarget(path, referenceBase, candidateBase string) PageTarget {
	return PageTarget{
		Path:         path,
		ReferenceURL: JoinURL(referenceBase, path),
		CandidateURL: JoinURL(candidateBase, path),
	}
}

// JoinURL joins a base URL and a page path with exactly one slash between them.
// Query strings and fragments in path are kept as they are.
func JoinURL(base, path string) string {
	base = strings.TrimRight(base, "/")
	if path == "" {
		return base + "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// SanitizePath turns a page path into a file name stem by replacing every
// path separator ("/" and "\") with an underscore. The root page "/" becomes "_".
func SanitizePath(path string) string {
	return strings.NewReplacer("/", "_", `\`, "_").Replace(path)
}
