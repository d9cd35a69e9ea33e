// Package group defines the study-group domain model shared by the wire
// protocol, the dispatcher, the in-memory collection and the persistence
// stores.
package group

import (
	"time"
)

// Person is the administrator of a study group. It is a value object:
// two Person values are equal when every field matches, which is the
// equality COUNT_BY_GROUP_ADMIN counts by.
type Person struct {
	Name        string  `json:"name" validate:"required,min=1"`
	Weight      float64 `json:"weight" validate:"gt=0"`
	EyeColor    Color   `json:"eyeColor" validate:"required,oneof=GREEN BLACK BLUE ORANGE BROWN WHITE"`
	HairColor   Color   `json:"hairColor" validate:"required,oneof=GREEN BLACK BLUE ORANGE BROWN WHITE"`
	Nationality Country `json:"nationality" validate:"required,oneof=RUSSIA GERMANY CHINA THAILAND NORTH_KOREA"`
}

// Equal reports value equality of two admins.
func (p Person) Equal(other Person) bool {
	return p == other
}

// Group is the primary domain entity. ID is assigned by the persistence
// store on creation and immutable afterwards; the zero ID marks a group
// that has not been persisted yet.
type Group struct {
	ID              int             `json:"id"`
	Name            string          `json:"name" validate:"required,min=1"`
	Coordinates     Coordinates     `json:"coordinates"`
	CreationDate    time.Time       `json:"creationDate"`
	StudentsCount   int             `json:"studentsCount" validate:"gt=0"`
	FormOfEducation FormOfEducation `json:"formOfEducation" validate:"required,oneof=DISTANCE_EDUCATION FULL_TIME_EDUCATION EVENING_CLASSES"`
	Semester        Semester        `json:"semester" validate:"required,oneof=FIRST SECOND FIFTH SIXTH SEVENTH"`
	GroupAdmin      Person          `json:"groupAdmin" validate:"required"`
}

// Coordinates locate a study group on campus.
type Coordinates struct {
	X float64 `json:"x" validate:"gte=-793"`
	Y int     `json:"y"`
}

// CompareTo orders groups by their students count, the single ordering
// field used by REMOVE_GREATER and REMOVE_LOWER. Returns <0, 0 or >0.
func (g *Group) CompareTo(other *Group) int {
	switch {
	case g.StudentsCount < other.StudentsCount:
		return -1
	case g.StudentsCount > other.StudentsCount:
		return 1
	default:
		return 0
	}
}

// Clone returns a deep copy. The collection hands out clones so that
// callers can never mutate the mirror behind its lock.
func (g *Group) Clone() *Group {
	cp := *g
	return &cp
}
