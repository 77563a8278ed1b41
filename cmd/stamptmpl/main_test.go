package main

import "testing"

func TestParseOverrides(t *testing.T) {
	tests := []struct {
		name    string
		flags   []string
		want    map[string]string
		wantErr bool
	}{
		{"none", nil, map[string]string{}, false},
		{"single", []string{"APP_VERSION=dev"}, map[string]string{"APP_VERSION": "dev"}, false},
		{"value with equals", []string{"QUERY=a=b"}, map[string]string{"QUERY": "a=b"}, false},
		{"empty value", []string{"EMPTY="}, map[string]string{"EMPTY": ""}, false},
		{"later wins", []string{"A=1", "A=2"}, map[string]string{"A": "2"}, false},
		{"missing separator", []string{"APP_VERSION"}, nil, true},
		{"missing key", []string{"=dev"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseOverrides(tt.flags)

			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("expected %s=%q, got %q", k, v, got[k])
				}
			}
		})
	}
}
