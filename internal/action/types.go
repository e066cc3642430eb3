package action

import (
	"fmt"
	"strings"
)

// Type tags an action. Values have the form "<feature>/<intent>".
type Type string

// Authentication intents.
const (
	Login  Type = "authentication/login"
	Logout Type = "authentication/logout"
)

// Task intents.
const (
	GetTasks   Type = "tasks/get"
	AddTask    Type = "tasks/add"
	UpdateTask Type = "tasks/update"
)

// User intents.
const (
	GetUsers Type = "users/get"
)

// Account intents.
const (
	GetAccount Type = "account/get"
)

// catalog is the closed set of action types, in declaration order.
var catalog = []Type{
	Login,
	Logout,
	GetTasks,
	AddTask,
	UpdateTask,
	GetUsers,
	GetAccount,
}

var known = make(map[Type]struct{}, len(catalog))

func init() {
	if err := index(catalog, known); err != nil {
		panic(err)
	}
}

// index fills dst from types, failing on a malformed or duplicated tag.
func index(types []Type, dst map[Type]struct{}) error {
	for _, t := range types {
		if t.Feature() == "" || t.Intent() == "" {
			return fmt.Errorf("action type %q is not of the form feature/intent", t)
		}
		if _, dup := dst[t]; dup {
			return fmt.Errorf("action type %q declared twice", t)
		}
		dst[t] = struct{}{}
	}
	return nil
}

// All returns every declared action type in declaration order.
func All() []Type {
	out := make([]Type, len(catalog))
	copy(out, catalog)
	return out
}

// Known reports whether t belongs to the declared enumeration.
func Known(t Type) bool {
	_, ok := known[t]
	return ok
}

// Feature returns the feature scope of t ("tasks" for "tasks/get").
func (t Type) Feature() string {
	feature, _, ok := strings.Cut(string(t), "/")
	if !ok {
		return ""
	}
	return feature
}

// Intent returns the intent part of t ("get" for "tasks/get").
func (t Type) Intent() string {
	_, intent, ok := strings.Cut(string(t), "/")
	if !ok {
		return ""
	}
	return intent
}

func (t Type) String() string {
	return string(t)
}
