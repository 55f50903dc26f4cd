package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelativeSpecifierFrom(t *testing.T) {
	tests := []struct {
		name      string
		requester string
		module    string
		want      string
	}{
		{
			name:      "same directory",
			requester: "/ws/src/app.ts",
			module:    "/ws/src/util.ts",
			want:      "./util",
		},
		{
			name:      "subdirectory",
			requester: "/ws/src/app.ts",
			module:    "/ws/src/helpers/dates.ts",
			want:      "./helpers/dates",
		},
		{
			name:      "parent directory",
			requester: "/ws/src/deep/app.ts",
			module:    "/ws/src/util.ts",
			want:      "../util",
		},
		{
			name:      "sibling tree",
			requester: "/ws/src/a/app.ts",
			module:    "/ws/src/b/util.ts",
			want:      "../b/util",
		},
		{
			name:      "index file collapses to directory",
			requester: "/ws/src/app.ts",
			module:    "/ws/src/widgets/index.ts",
			want:      "./widgets",
		},
		{
			name:      "index file in same directory",
			requester: "/ws/src/app.ts",
			module:    "/ws/src/index.ts",
			want:      ".",
		},
		{
			name:      "index file in parent directory",
			requester: "/ws/src/deep/app.ts",
			module:    "/ws/src/index.ts",
			want:      "..",
		},
		{
			name:      "tsx extension stripped",
			requester: "/ws/src/app.ts",
			module:    "/ws/src/Button.tsx",
			want:      "./Button",
		},
		{
			name:      "mjs extension stripped",
			requester: "/ws/src/app.ts",
			module:    "/ws/src/legacy.mjs",
			want:      "./legacy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := ModuleIdentity{AbsolutePath: tt.module}
			assert.Equal(t, tt.want, id.RelativeSpecifierFrom(tt.requester))
		})
	}
}

func TestIdentityFor_GlobalNames(t *testing.T) {
	r := NewResolver([]string{"/ws/src"}, true, nil)

	tests := []struct {
		name string
		path string
		want string
	}{
		{"plain file", "/ws/src/dates.ts", "dates"},
		{"nested file", "/ws/src/helpers/format.ts", "format"},
		{"index takes directory name", "/ws/src/widgets/index.ts", "widgets"},
		{"outside source roots", "/ws/scripts/build.ts", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity := r.IdentityFor(tt.path)
			assert.Equal(t, tt.path, identity.AbsolutePath)
			assert.Equal(t, tt.want, identity.GlobalName)
		})
	}
}

// A path that merely shares a prefix with a source root is not under it.
func TestIdentityFor_PrefixIsNotContainment(t *testing.T) {
	r := NewResolver([]string{"/ws/src"}, true, nil)

	identity := r.IdentityFor("/ws/src-old/legacy.ts")
	assert.Empty(t, identity.GlobalName)
}

func TestIdentityFor_Disabled(t *testing.T) {
	r := NewResolver([]string{"/ws/src"}, false, nil)

	identity := r.IdentityFor("/ws/src/dates.ts")
	assert.Empty(t, identity.GlobalName)
}
