package buildinfo

import (
	"errors"
	"regexp"
	"strings"
)

// ErrNoRevision is returned when neither the status nor an override provides APP_VERSION
var ErrNoRevision = errors.New("status has no STABLE_GIT_REVISION")

const (
	// RevisionKey is the status key holding the source revision
	RevisionKey = "STABLE_GIT_REVISION"
	// VersionVar is the template variable the revision is published as
	VersionVar = "APP_VERSION"
)

// placeholder matches $$, $NAME, ${NAME} and a lone $ in that order of preference
var placeholder = regexp.MustCompile(`\$(?:(\$)|([_a-zA-Z][_a-zA-Z0-9]*)|\{([_a-zA-Z][_a-zA-Z0-9]*)\}|)`)

// Render substitutes vars into tmpl
//
// $$ becomes $. $NAME and ${NAME} are replaced when NAME is in vars; any
// other placeholder, including malformed ones like ${} or a trailing $, is
// left exactly as written.
func Render(tmpl string, vars map[string]string) string {
	matches := placeholder.FindAllStringSubmatchIndex(tmpl, -1)
	if len(matches) == 0 {
		return tmpl
	}

	var out strings.Builder
	out.Grow(len(tmpl))

	last := 0
	for _, m := range matches {
		out.WriteString(tmpl[last:m[0]])
		last = m[1]

		switch {
		case m[2] >= 0:
			out.WriteByte('$')
		case m[4] >= 0:
			out.WriteString(lookup(vars, tmpl[m[4]:m[5]], tmpl[m[0]:m[1]]))
		case m[6] >= 0:
			out.WriteString(lookup(vars, tmpl[m[6]:m[7]], tmpl[m[0]:m[1]]))
		default:
			out.WriteString(tmpl[m[0]:m[1]])
		}
	}
	out.WriteString(tmpl[last:])

	return out.String()
}

func lookup(vars map[string]string, name, original string) string {
	if v, ok := vars[name]; ok {
		return v
	}
	return original
}

// TemplateVars returns the variables a template is rendered with: every
// status key, APP_VERSION set to the source revision, then overrides.
func TemplateVars(status *Status, overrides map[string]string) (map[string]string, error) {
	vars := status.Vars()
	if revision, ok := status.Get(RevisionKey); ok {
		vars[VersionVar] = revision
	}
	for k, v := range overrides {
		vars[k] = v
	}

	if _, ok := vars[VersionVar]; !ok {
		return nil, ErrNoRevision
	}
	return vars, nil
}
