/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/

// Package publish decides which assets may be published and pushes them.
package publish

import "sort"

// Decision is the outcome of gating one manifest.
type Decision int

const (
	// Unchanged: identical to the published version. Resolves to the force setting
	// unless another manifest under the same key decides.
	Unchanged Decision = iota
	// Approved: no previous version, or the change was confirmed.
	Approved
	// Rejected: the change was declined, or the previous version could not be read.
	Rejected
)

// ConfirmationMatrix maps (tag, asset type) to whether assets may be published.
// It is immutable once built; missing entries are not allowed.
type ConfirmationMatrix struct {
	entries map[string]map[string]bool
}

// Allowed reports whether assets of typ under tag may be published.
func (m *ConfirmationMatrix) Allowed(tag, typ string) bool {
	if m == nil {
		return false
	}
	return m.entries[tag][typ]
}

// Tags returns the tags with at least one entry, sorted.
func (m *ConfirmationMatrix) Tags() []string {
	if m == nil {
		return nil
	}
	tags := make([]string, 0, len(m.entries))
	for t := range m.entries {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// Types returns the entries of tag, sorted by type.
func (m *ConfirmationMatrix) Types(tag string) []string {
	if m == nil {
		return nil
	}
	types := make([]string, 0, len(m.entries[tag]))
	for t := range m.entries[tag] {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// MatrixBuilder accumulates decisions. Several manifests can share a key when services
// share a tag: a rejection wins, then an approval, and a key whose manifests are all
// unchanged resolves to force.
type MatrixBuilder struct {
	force     bool
	decisions map[string]map[string]Decision
}

// NewMatrixBuilder starts an empty matrix.
func NewMatrixBuilder(force bool) *MatrixBuilder {
	return &MatrixBuilder{force: force, decisions: make(map[string]map[string]Decision)}
}

// Record adds the decision for one manifest.
func (b *MatrixBuilder) Record(tag, typ string, d Decision) {
	byType, ok := b.decisions[tag]
	if !ok {
		byType = make(map[string]Decision)
		b.decisions[tag] = byType
	}
	if prev, seen := byType[typ]; seen && prev > d {
		return
	}
	byType[typ] = d
}

// Build returns the resolved matrix.
func (b *MatrixBuilder) Build() *ConfirmationMatrix {
	m := &ConfirmationMatrix{entries: make(map[string]map[string]bool, len(b.decisions))}
	for tag, byType := range b.decisions {
		row := make(map[string]bool, len(byType))
		for typ, d := range byType {
			switch d {
			case Approved:
				row[typ] = true
			case Unchanged:
				row[typ] = b.force
			default:
				row[typ] = false
			}
		}
		m.entries[tag] = row
	}
	return m
}
