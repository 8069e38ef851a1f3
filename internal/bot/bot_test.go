package bot

import "testing"

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantName string
		wantArgs string
	}{
		{
			name:     "bare command",
			input:    "stats",
			wantName: "stats",
			wantArgs: "",
		},
		{
			name:     "command with arguments",
			input:    "search how do I deploy",
			wantName: "search",
			wantArgs: "how do I deploy",
		},
		{
			name:     "case folded",
			input:    "SEARCH foo",
			wantName: "search",
			wantArgs: "foo",
		},
		{
			name:     "surrounding whitespace",
			input:    "  index  ",
			wantName: "index",
			wantArgs: "",
		},
		{
			name:     "empty input",
			input:    "",
			wantName: "",
			wantArgs: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, args := splitCommand(tt.input)
			if name != tt.wantName || args != tt.wantArgs {
				t.Errorf("splitCommand(%q) = (%q, %q), want (%q, %q)",
					tt.input, name, args, tt.wantName, tt.wantArgs)
			}
		})
	}
}
