/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package query

import (
	"strings"
	"unicode"
)

// Path is a declarative navigation path for eager loading, built step by step:
//
//	query.Nav("Customer").Then("Address")   // "Customer.Address"
//	query.Nav("Orders").Each("Lines")       // "Orders.Lines", Lines is a collection
type Path struct {
	steps []step
}

type step struct {
	name       string
	collection bool
}

// Nav starts a path at a navigation member of the root entity.
func Nav(member string) Path {
	return Path{steps: []step{{name: member}}}
}

// NavEach starts a path at a collection member of the root entity.
func NavEach(member string) Path {
	return Path{steps: []step{{name: member, collection: true}}}
}

// Then descends into a single-valued member.
func (p Path) Then(member string) Path {
	return p.with(step{name: member})
}

// Each descends into a collection-valued member.
func (p Path) Each(member string) Path {
	return p.with(step{name: member, collection: true})
}

func (p Path) with(s step) Path {
	steps := make([]step, len(p.steps), len(p.steps)+1)
	copy(steps, p.steps)
	return Path{steps: append(steps, s)}
}

// ParsePath splits a dot-separated path. Every step is treated as single-valued.
func ParsePath(s string) Path {
	var p Path
	for _, part := range strings.Split(strings.TrimSpace(s), ".") {
		p.steps = append(p.steps, step{name: part})
	}
	return p
}

// Resolve renders the path as a dot-separated string. It reports false when
// the path is empty or any step is not a valid member name.
func (p Path) Resolve() (string, bool) {
	if len(p.steps) == 0 {
		return "", false
	}
	return resolveSteps(p.steps, "")
}

func resolveSteps(steps []step, acc string) (string, bool) {
	if len(steps) == 0 {
		return acc, true
	}
	if !validMember(steps[0].name) {
		return "", false
	}
	if acc != "" {
		acc += "."
	}
	return resolveSteps(steps[1:], acc+steps[0].name)
}

func validMember(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case unicode.IsDigit(r) && i > 0:
		default:
			return false
		}
	}
	return true
}

// Segments returns the member names in order.
func (p Path) Segments() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.name
	}
	return names
}

// Member returns the last member name of the path.
func (p Path) Member() string {
	if len(p.steps) == 0 {
		return ""
	}
	return p.steps[len(p.steps)-1].name
}

// Collection reports whether the last step was declared with Each.
func (p Path) Collection() bool {
	return len(p.steps) > 0 && p.steps[len(p.steps)-1].collection
}

func (p Path) String() string {
	return strings.Join(p.Segments(), ".")
}
