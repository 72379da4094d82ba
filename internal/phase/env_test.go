package phase

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	paxbuilder "github.com/oreonproject/paxbuilder"
)

func TestBuildEnvRecipeWinsOverHost(t *testing.T) {
	host := paxbuilder.HostEnv{"CC": "host-cc", "PATH": "/usr/bin"}
	recipeEnv := map[string]string{"CC": "recipe-cc"}

	got := BuildEnv(recipeEnv, host)
	if got["CC"] != "recipe-cc" {
		t.Errorf("CC = %q, want recipe-cc", got["CC"])
	}
	if got["PATH"] != "/usr/bin" {
		t.Errorf("PATH = %q, want /usr/bin", got["PATH"])
	}
}

func TestMergeEnvSeparators(t *testing.T) {
	tests := []struct {
		name      string
		target    map[string]string
		additions map[string]string
		want      map[string]string
	}{
		{
			name:      "empty addition ignored",
			target:    map[string]string{"CFLAGS": "-O2"},
			additions: map[string]string{"CFLAGS": ""},
			want:      map[string]string{"CFLAGS": "-O2"},
		},
		{
			name:      "absent key set outright",
			target:    map[string]string{},
			additions: map[string]string{"CPPFLAGS": "-I/opt/include"},
			want:      map[string]string{"CPPFLAGS": "-I/opt/include"},
		},
		{
			name:      "PATH-style key prepended with colon",
			target:    map[string]string{"PKG_CONFIG_PATH": "/usr/lib/pkgconfig"},
			additions: map[string]string{"PKG_CONFIG_PATH": "/opt/lib/pkgconfig"},
			want:      map[string]string{"PKG_CONFIG_PATH": "/opt/lib/pkgconfig:/usr/lib/pkgconfig"},
		},
		{
			name:      "FLAGS key prepended with space",
			target:    map[string]string{"LDFLAGS": "-lm"},
			additions: map[string]string{"LDFLAGS": "-L/opt/lib"},
			want:      map[string]string{"LDFLAGS": "-L/opt/lib -lm"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			MergeEnv(tt.target, tt.additions)
			if diff := cmp.Diff(tt.want, tt.target); diff != "" {
				t.Errorf("MergeEnv() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
