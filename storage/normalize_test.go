package storage

import "testing"

func TestNormalizeSourceKey(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"Simple", "BBC", "bbc"},
		{"Spaces", "Financial Times", "financial_times"},
		{"Already normalized", "financial_times", "financial_times"},
		{"Uppercase with underscores", "FINANCIAL_TIMES", "financial_times"},
		{"Hyphens", "al-jazeera", "al_jazeera"},
		{"Mixed punctuation runs", "The  Wall -- Street  Journal", "the_wall_street_journal"},
		{"Leading and trailing junk", "  Reuters! ", "reuters"},
		{"Digits preserved", "Channel 4 News", "channel_4_news"},
		{"Empty", "", ""},
		{"Only punctuation", "--- ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeSourceKey(tt.source); got != tt.want {
				t.Errorf("NormalizeSourceKey(%q) = %q, want %q", tt.source, got, tt.want)
			}
		})
	}
}

func TestNormalizeSourceKeyIsIdempotent(t *testing.T) {
	inputs := []string{"Financial Times", "financial times", "FINANCIAL_TIMES"}
	want := "financial_times"

	for _, in := range inputs {
		once := NormalizeSourceKey(in)
		if once != want {
			t.Errorf("NormalizeSourceKey(%q) = %q, want %q", in, once, want)
		}
		if twice := NormalizeSourceKey(once); twice != once {
			t.Errorf("normalization not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		company string
		source  string
		want    string
	}{
		{"Airbus", "Financial Times", "Airbus/financial_times.json"},
		{"ACME Corp", "BBC", "ACME Corp/bbc.json"}, // company preserved verbatim
		{"Airbus", "financial times", "Airbus/financial_times.json"},
	}

	for _, tt := range tests {
		if got := ObjectKey(tt.company, tt.source); got != tt.want {
			t.Errorf("ObjectKey(%q, %q) = %q, want %q", tt.company, tt.source, got, tt.want)
		}
	}
}

func TestDisplaySourceName(t *testing.T) {
	tests := []struct {
		stem string
		want string
	}{
		{"financial_times", "Financial Times"},
		{"bbc", "Bbc"},
		{"channel_4_news", "Channel 4 News"},
	}

	for _, tt := range tests {
		if got := DisplaySourceName(tt.stem); got != tt.want {
			t.Errorf("DisplaySourceName(%q) = %q, want %q", tt.stem, got, tt.want)
		}
	}
}
