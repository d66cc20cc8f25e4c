// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// CutoffRecord is the anchor paper whose normalized title matches the topic.
// It is resolved at most once per run and never modified afterwards. A nil
// *CutoffRecord means the run has no cutoff.
type CutoffRecord struct {
	SourceID        string `json:"source_id" yaml:"source_id"`
	Title           string `json:"title" yaml:"title"`
	TitleNormalized string `json:"title_normalized" yaml:"title_normalized"`

	// Date is the cutoff paper's date on DateField.
	Date time.Time `json:"date" yaml:"date"`

	// DateField is the date every candidate is compared on.
	DateField DateField `json:"date_field" yaml:"date_field"`
}

// HasDate reports whether the cutoff carries a usable date.
func (c *CutoffRecord) HasDate() bool {
	return c != nil && !c.Date.IsZero()
}

// ID returns the cutoff source id, or "" for a nil cutoff.
func (c *CutoffRecord) ID() string {
	if c == nil {
		return ""
	}
	return c.SourceID
}
