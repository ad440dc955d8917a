package ui

import (
	"strings"
	"testing"
)

func TestThemeByName(t *testing.T) {
	if !ThemeByName("dark").IsDark {
		t.Error("dark theme should be dark")
	}
	if ThemeByName("light").IsDark {
		t.Error("light theme should not be dark")
	}
}

func TestDetectTheme(t *testing.T) {
	tests := []struct {
		env  string
		dark bool
	}{
		{"15;0", true},
		{"15;8", true},
		{"0;15", false},
		{"garbage", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Setenv("COLORFGBG", tt.env)
		if got := DetectTheme().IsDark; got != tt.dark {
			t.Errorf("COLORFGBG=%q: IsDark = %v, want %v", tt.env, got, tt.dark)
		}
	}
}

func TestThemeByNameAutoFollowsTerminal(t *testing.T) {
	t.Setenv("COLORFGBG", "15;0")
	if !ThemeByName("auto").IsDark {
		t.Error("auto should pick the dark theme on a dark background")
	}
}

func TestRenderDivider(t *testing.T) {
	s := NewStyles(LightTheme())
	if got := s.RenderDivider(5); !strings.Contains(got, "─────") {
		t.Errorf("divider = %q", got)
	}
	if got := s.RenderDivider(-1); strings.Contains(got, "─") {
		t.Errorf("negative width should render nothing, got %q", got)
	}
}
