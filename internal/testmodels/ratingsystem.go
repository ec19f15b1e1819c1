/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package testmodels holds entities shared by tests across backends.
package testmodels

import (
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
)

type RatingSystem struct {

	// Timestamp when the rating system was created.
	// Format: date-time
	CreatedAt strfmt.DateTime `json:"CreatedAt" bun:"created_at"`

	// A description of the rating system.
	Description string `json:"Description" bun:"description"`

	// Unique identifier for the rating system.
	// Format: uuid
	ID string `json:"Id" bun:"id,pk" validate:"required,uuid"`

	// Name of the rating system.
	Name string `json:"Name" bun:"name" validate:"required"`

	// site Url
	SiteURL string `json:"SiteUrl,omitempty" bun:"site_url" validate:"omitempty,url"`

	// Timestamp when the rating system was last updated.
	// Format: date-time
	UpdatedAt strfmt.DateTime `json:"UpdatedAt" bun:"updated_at"`
}

func (r RatingSystem) Key() string { return r.ID }

// NewRatingSystem returns a rating system with a fresh id, stamped at now.
func NewRatingSystem(name, description string, now time.Time) RatingSystem {
	ts := strfmt.DateTime(now.UTC())
	return RatingSystem{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
}

// Touch returns r with UpdatedAt set to now.
func (r RatingSystem) Touch(now time.Time) RatingSystem {
	r.UpdatedAt = strfmt.DateTime(now.UTC())
	return r
}

// Newest orders rating systems by creation time, latest first.
func Newest(a, b RatingSystem) bool {
	return time.Time(a.CreatedAt).After(time.Time(b.CreatedAt))
}
