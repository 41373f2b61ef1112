// Copyright 2025 The zb Authors
// SPDX-License-Identifier: MIT

// Package hal encodes the subset of the [JSON Hypertext Application Language] (HAL)
// used by the lupin HTTP API to advertise its endpoints.
//
// [JSON Hypertext Application Language]: https://datatracker.ietf.org/doc/html/draft-kelly-json-hal-11
package hal

import (
	"fmt"
	"maps"
	"net/url"
	"slices"

	jsonv2 "github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"zombiezen.com/go/uritemplate"
)

// MediaType is the MIME media type of a HAL document.
const MediaType = "application/hal+json"

// SelfRelationType is the link relation type for a resource's own URI.
const SelfRelationType = "self"

const linksPropertyName = "_links"

// Resource is a HAL [resource object] without embedded resources.
// Each link relation type maps to exactly one link.
//
// [resource object]: https://datatracker.ietf.org/doc/html/draft-kelly-json-hal-11#name-resource-objects
type Resource struct {
	Links      map[string]*Link
	Properties map[string]jsontext.Value
}

// Link returns the link for the given relation type or nil if there is none.
func (r *Resource) Link(rel string) *Link {
	if r == nil {
		return nil
	}
	return r.Links[rel]
}

// MarshalJSONTo writes the resource to enc as a JSON object.
// Links and properties are written in sorted order.
func (r *Resource) MarshalJSONTo(enc *jsontext.Encoder) error {
	if _, ok := r.Properties[linksPropertyName]; ok {
		return fmt.Errorf("marshal hal resource: %s property is reserved", linksPropertyName)
	}
	if err := enc.WriteToken(jsontext.BeginObject); err != nil {
		return fmt.Errorf("marshal hal resource: %w", err)
	}
	if len(r.Links) > 0 {
		if err := enc.WriteToken(jsontext.String(linksPropertyName)); err != nil {
			return fmt.Errorf("marshal hal resource: %w", err)
		}
		if err := jsonv2.MarshalEncode(enc, r.Links, jsonv2.Deterministic(true)); err != nil {
			return fmt.Errorf("marshal hal resource: %s: %w", linksPropertyName, err)
		}
	}
	for _, k := range slices.Sorted(maps.Keys(r.Properties)) {
		if err := enc.WriteToken(jsontext.String(k)); err != nil {
			return fmt.Errorf("marshal hal resource: %s: %w", k, err)
		}
		if err := enc.WriteValue(r.Properties[k]); err != nil {
			return fmt.Errorf("marshal hal resource: %s: %w", k, err)
		}
	}
	if err := enc.WriteToken(jsontext.EndObject); err != nil {
		return fmt.Errorf("marshal hal resource: %w", err)
	}
	return nil
}

// UnmarshalJSONFrom reads a JSON object from dec into the resource.
// Link arrays and embedded resources are not supported.
func (r *Resource) UnmarshalJSONFrom(dec *jsontext.Decoder) error {
	if tok, err := dec.ReadToken(); err != nil {
		return fmt.Errorf("unmarshal hal resource: %w", err)
	} else if got := tok.Kind(); got != '{' {
		return fmt.Errorf("unmarshal hal resource: unexpected %v token (want object)", got)
	}

	for {
		keyToken, err := dec.ReadToken()
		if err != nil {
			return fmt.Errorf("unmarshal hal resource: %w", err)
		}
		if keyToken.Kind() == '}' {
			return nil
		}
		switch key := keyToken.String(); key {
		case linksPropertyName:
			if err := jsonv2.UnmarshalDecode(dec, &r.Links); err != nil {
				return fmt.Errorf("unmarshal hal resource: %s: %w", key, err)
			}
		case "_embedded":
			return fmt.Errorf("unmarshal hal resource: embedded resources not supported")
		default:
			v, err := dec.ReadValue()
			if err != nil {
				return fmt.Errorf("unmarshal hal resource: %s: %w", key, err)
			}
			if r.Properties == nil {
				r.Properties = make(map[string]jsontext.Value)
			}
			r.Properties[key] = v.Clone()
		}
	}
}

// Link is a HAL [link object].
//
// [link object]: https://datatracker.ietf.org/doc/html/draft-kelly-json-hal-11#name-link-objects
type Link struct {
	// HRef is either a URI or a [URI template]
	// based on the value of Templated.
	//
	// [URI template]: https://datatracker.ietf.org/doc/html/rfc6570
	HRef      string `json:"href"`
	Templated bool   `json:"templated,omitzero"`
	// Title is an optional human-readable label for the link.
	Title string `json:"title,omitempty"`
	// Type is the media type expected when dereferencing the target.
	Type string `json:"type,omitempty"`
}

// Expand resolves the link's URI with the given template parameters.
// If the link is not templated, then data is ignored.
func (l *Link) Expand(data any) (*url.URL, error) {
	href := l.HRef
	if l.Templated {
		var err error
		href, err = uritemplate.Expand(href, data)
		if err != nil {
			return nil, fmt.Errorf("expand %s: %v", l.HRef, err)
		}
	}
	return url.Parse(href)
}
