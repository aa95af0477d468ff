package access_test

import (
	"testing"

	"github.com/willemschots/gatekeeper/internal/access"
)

func Test_RequireAuth(t *testing.T) {
	excluded := []string{"/api/v1/status/", "/api/v1/unauthorized", "/api/v1/stat*"}

	tests := map[string]struct {
		path     string
		excluded []string
		want     bool
	}{
		"empty path":                    {path: "", excluded: excluded, want: true},
		"no excluded paths":             {path: "/api/v1/status/", excluded: nil, want: true},
		"empty excluded paths":          {path: "/api/v1/status/", excluded: []string{}, want: true},
		"excluded with slash":           {path: "/api/v1/status/", excluded: excluded, want: false},
		"excluded without slash":        {path: "/api/v1/status", excluded: excluded, want: false},
		"exclusion without slash":       {path: "/api/v1/unauthorized/", excluded: excluded, want: false},
		"exclusion without slash, path": {path: "/api/v1/unauthorized", excluded: excluded, want: false},
		"not excluded":                  {path: "/api/v1/users", excluded: excluded, want: true},
		"wildcard":                      {path: "/api/v1/stats", excluded: excluded, want: false},
		"wildcard, exact prefix":        {path: "/api/v1/stat", excluded: excluded, want: false},
		"wildcard, nested":              {path: "/api/v1/status/deep/path", excluded: excluded, want: false},
		"wildcard, shorter path":        {path: "/api/v1/sta", excluded: excluded, want: true},
		"exact does not match prefix":   {path: "/api/v1/unauthorized/more", excluded: excluded, want: true},
		"root only":                     {path: "/", excluded: []string{"/"}, want: false},
		"root does not exclude others":  {path: "/profile", excluded: []string{"/"}, want: true},
		"wildcard is not a glob":        {path: "/api/v1/x", excluded: []string{"/api/?/x*"}, want: true},
		"wildcard with glob chars":      {path: "/api/?/xyz", excluded: []string{"/api/?/x*"}, want: false},
		"only star excludes everything": {path: "/profile", excluded: []string{"*"}, want: false},
		"empty exclusion is ignored":    {path: "/profile", excluded: []string{""}, want: true},
		"case sensitive":                {path: "/API/v1/status/", excluded: excluded, want: true},
	}

	for name, tc := range tests {
		t.Run("ok, "+name, func(t *testing.T) {
			got := access.RequireAuth(tc.path, tc.excluded)
			if got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}

			g, err := access.NewGuard(tc.excluded)
			if err != nil {
				t.Fatalf("failed to create guard: %v", err)
			}

			got = g.RequireAuth(tc.path)
			if got != tc.want {
				t.Errorf("guard: got %v, want %v", got, tc.want)
			}
		})
	}
}
