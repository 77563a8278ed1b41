package buildinfo

import (
	"errors"
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	vars := map[string]string{
		"APP_VERSION": "abc123",
		"name":        "geo",
	}

	tests := []struct {
		name string
		tmpl string
		want string
	}{
		{"braced", "const VERSION = '${APP_VERSION}';", "const VERSION = 'abc123';"},
		{"bare", "v=$APP_VERSION;", "v=abc123;"},
		{"bare stops at non-identifier", "$APP_VERSION.js", "abc123.js"},
		{"bare takes the longest identifier", "$APP_VERSIONS", "$APP_VERSIONS"},
		{"escaped dollar", "cost: $$5 and $$APP_VERSION", "cost: $5 and $APP_VERSION"},
		{"unknown left intact", "${UNKNOWN} $UNKNOWN", "${UNKNOWN} $UNKNOWN"},
		{"malformed braced", "${} ${1abc} ${APP_VERSION", "${} ${1abc} ${APP_VERSION"},
		{"trailing dollar", "price$", "price$"},
		{"dollar before digit", "$5", "$5"},
		{"case sensitive names", "$Name $name", "$Name geo"},
		{"no placeholders", "self.addEventListener('fetch', e => {});\n", "self.addEventListener('fetch', e => {});\n"},
		{"repeated", "${APP_VERSION}-${APP_VERSION}", "abc123-abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.tmpl, vars); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRender_ServiceWorker(t *testing.T) {
	status, err := LoadStatus(strings.NewReader(`{"STABLE_GIT_REVISION": "abc123"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vars, err := TemplateVars(status, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tmpl := "const CACHE = `app-${APP_VERSION}`;\nconst fmt = `${x}`; // $$ kept\r\n\tprecache(self.__WB_MANIFEST);\n"
	want := "const CACHE = `app-abc123`;\nconst fmt = `${x}`; // $ kept\r\n\tprecache(self.__WB_MANIFEST);\n"

	if got := Render(tmpl, vars); got != want {
		t.Errorf("unexpected render:\n got: %q\nwant: %q", got, want)
	}
}

func TestTemplateVars(t *testing.T) {
	status := NewStatus()
	status.Set(RevisionKey, "abc123")
	status.Set("BUILD_HOST", "ci")

	vars, err := TemplateVars(status, map[string]string{"BUILD_HOST": "local", "EXTRA": "1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]string{
		RevisionKey:  "abc123",
		VersionVar:   "abc123",
		"BUILD_HOST": "local",
		"EXTRA":      "1",
	}
	if len(vars) != len(want) {
		t.Errorf("expected %d vars, got %v", len(want), vars)
	}
	for k, v := range want {
		if vars[k] != v {
			t.Errorf("expected %s=%q, got %q", k, v, vars[k])
		}
	}
}

func TestTemplateVars_NoRevision(t *testing.T) {
	status := NewStatus()
	status.Set("BUILD_HOST", "ci")

	if _, err := TemplateVars(status, nil); !errors.Is(err, ErrNoRevision) {
		t.Errorf("expected ErrNoRevision, got %v", err)
	}

	vars, err := TemplateVars(status, map[string]string{VersionVar: "dev"})
	if err != nil {
		t.Fatalf("expected override to satisfy APP_VERSION, got %v", err)
	}
	if vars[VersionVar] != "dev" {
		t.Errorf("expected APP_VERSION=dev, got %q", vars[VersionVar])
	}
}
