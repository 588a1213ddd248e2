// Package models defines the domain types for Othala.
package models

import "time"

// Note is a user-owned note together with its tag associations.
type Note struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Tags      []Tag     `json:"tags"`
}

// NoteDetail is a note enriched with its outgoing and incoming links.
type NoteDetail struct {
	Note
	OutgoingLinks []LinkedNote `json:"outgoingLinks"`
	IncomingLinks []LinkedNote `json:"incomingLinks"`
}

// LinkedNote is the lightweight shape of a note on the far side of a link.
type LinkedNote struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Tag is a user-owned label. Names are unique per user key.
type Tag struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Link is a directed edge between two notes owned by the same user key.
type Link struct {
	FromID    int64     `json:"fromId"`
	ToID      int64     `json:"toId"`
	CreatedAt time.Time `json:"createdAt"`
}

// TagCount is one entry of the top-tags insights report.
type TagCount struct {
	TagID int64  `json:"tagId"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// Insights is the usage report for one user key.
type Insights struct {
	RangeDays    int        `json:"rangeDays"`
	Start        time.Time  `json:"start"`
	CreatedCount int64      `json:"createdCount"`
	UpdatedCount int64      `json:"updatedCount"`
	TopTags      []TagCount `json:"topTags"`
}
