// Package common keeps enumerations shared between configuration and the
// editing packages, so that neither has to import the other.
package common

// Mode of an isolated editing session.
// ENUM(locked, editing)
type EditMode int

func (m EditMode) Editable() bool {
	return m == EditModeEditing
}

// Backend used to keep reusable fragments.
// ENUM(memory, sqlite)
type StorageKind int

func (k StorageKind) Persistent() bool {
	return k == StorageKindSqlite
}
