// Package item defines the Item Contract (component B): the capability
// set every user-defined item implements, plus the small value types
// (ItemId, FlowId, Profile, Generated) shared across the engine.
package item

import (
	"fmt"
	"regexp"
)

var idPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Id is a short ASCII snake-case token identifying an item. It is unique
// and stable across runs within one flow; changing it breaks continuity
// with stored state.
type Id string

// FlowId identifies a flow (a DAG of items) within a profile.
type FlowId string

// Profile names an environment scoping a flow's persisted state.
type Profile string

// NewId validates token and returns it as an Id.
func NewId(token string) (Id, error) {
	if !idPattern.MatchString(token) {
		return "", fmt.Errorf("item: invalid id %q, must match %s", token, idPattern.String())
	}
	return Id(token), nil
}

// NewFlowId validates token and returns it as a FlowId.
func NewFlowId(token string) (FlowId, error) {
	if !idPattern.MatchString(token) {
		return "", fmt.Errorf("item: invalid flow id %q, must match %s", token, idPattern.String())
	}
	return FlowId(token), nil
}

// NewProfile validates token and returns it as a Profile.
func NewProfile(token string) (Profile, error) {
	if !idPattern.MatchString(token) {
		return "", fmt.Errorf("item: invalid profile %q, must match %s", token, idPattern.String())
	}
	return Profile(token), nil
}

// MustId panics if token is invalid. Intended for static item ids declared
// as package-level vars in reference item implementations.
func MustId(token string) Id {
	id, err := NewId(token)
	if err != nil {
		panic(err)
	}
	return id
}
