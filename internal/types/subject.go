package types

import (
	"fmt"
	"strings"
)

// SubjectKind distinguishes employees from visitors
type SubjectKind string

const (
	SubjectEmployee SubjectKind = "employee"
	SubjectVisitor  SubjectKind = "visitor"
)

const (
	visitorPrefix = "VISITOR: "
	hostMarker    = " (Host: "
	defaultHost   = "Unknown"
)

// Subject is the person attached to an event. Events store it as a single
// display string; String and ParseSubject convert between the two forms.
type Subject struct {
	Kind SubjectKind
	Name string
	Host string
}

// Employee builds an employee subject
func Employee(name string) Subject {
	return Subject{Kind: SubjectEmployee, Name: name}
}

// Visitor builds a visitor subject; an empty host becomes "Unknown"
func Visitor(name, host string) Subject {
	if strings.TrimSpace(host) == "" {
		host = defaultHost
	}
	return Subject{Kind: SubjectVisitor, Name: name, Host: host}
}

// IsVisitor reports whether the subject is a visitor
func (s Subject) IsVisitor() bool {
	return s.Kind == SubjectVisitor
}

// String renders the stored subject name
func (s Subject) String() string {
	if s.Kind == SubjectVisitor {
		return fmt.Sprintf("%s%s%s%s)", visitorPrefix, s.Name, hostMarker, s.Host)
	}
	return s.Name
}

// ParseSubject decodes a stored subject name. Names without the visitor prefix
// are employees.
func ParseSubject(name string) Subject {
	if !strings.HasPrefix(name, visitorPrefix) {
		return Employee(name)
	}

	rest := strings.TrimPrefix(name, visitorPrefix)
	idx := strings.LastIndex(rest, hostMarker)
	if idx < 0 || !strings.HasSuffix(rest, ")") {
		return Subject{Kind: SubjectVisitor, Name: rest, Host: defaultHost}
	}

	return Subject{
		Kind: SubjectVisitor,
		Name: rest[:idx],
		Host: strings.TrimSuffix(rest[idx+len(hostMarker):], ")"),
	}
}
