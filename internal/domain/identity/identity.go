// Package identity resolves device-side subject codes to HR employee
// identities. Resolution tries a short, priority-ordered list of lookup
// strategies; the first match wins and a miss is a counted skip, never an
// error.
package identity

import "context"

// Resolver maps a subject code to an employee identity.
// ok is false when no identity matches; err is reserved for lookup failures
// such as an unreachable directory.
type Resolver interface {
	Resolve(ctx context.Context, subjectCode string) (employee string, ok bool, err error)
}

// Lookup is a single resolution strategy, e.g. one identifier field.
type Lookup func(ctx context.Context, subjectCode string) (string, bool, error)

// Chain tries lookups in order and returns the first match.
type Chain []Lookup

// Resolve implements Resolver.
func (c Chain) Resolve(ctx context.Context, subjectCode string) (string, bool, error) {
	for _, lookup := range c {
		employee, ok, err := lookup(ctx, subjectCode)
		if err != nil {
			return "", false, err
		}
		if ok {
			return employee, true, nil
		}
	}
	return "", false, nil
}

// Static resolves from a fixed code-to-employee map.
type Static map[string]string

// Resolve implements Resolver.
func (m Static) Resolve(_ context.Context, subjectCode string) (string, bool, error) {
	employee, ok := m[subjectCode]
	return employee, ok, nil
}
