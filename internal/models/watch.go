package models

import "fmt"

// Watch is a named monitoring rule: a page URL, a CSS selector picking
// elements out of it, and a substring filter applied to each element's
// inner markup. The first filtered match is the watch's observed output.
type Watch struct {
	Name             string `json:"name"`
	URL              string `json:"url"`
	Selector         string `json:"selector"`
	FilterString     string `json:"filter_string"`
	LastLatestOutput string `json:"last_latest_output"`
	NotFetched       bool   `json:"not_fetched"`
}

// NewWatch creates a freshly registered watch with no baseline.
// NotFetched stays true until the first check that yields a filtered match.
func NewWatch(name, url, selector, filterString string) Watch {
	return Watch{
		Name:             name,
		URL:              url,
		Selector:         selector,
		FilterString:     filterString,
		LastLatestOutput: "",
		NotFetched:       true,
	}
}

// Validate checks that a watch record carries the fields every check needs.
// Records loaded from the store that fail validation are skipped, not fatal.
func (w Watch) Validate() error {
	if w.Name == "" {
		return fmt.Errorf("watch has empty name")
	}
	if w.URL == "" {
		return fmt.Errorf("watch %q has empty url", w.Name)
	}
	if w.Selector == "" {
		return fmt.Errorf("watch %q has empty selector", w.Name)
	}
	return nil
}

// QueryCheckResult pairs an updated watch with a flag indicating whether
// this was the watch's first-ever successful fetch. It is transient: the
// orchestrator uses IsFirstFetch to decide between notifying and
// suppressing, then persists UpdatedQuery either way.
type QueryCheckResult struct {
	UpdatedQuery Watch
	IsFirstFetch bool
}
