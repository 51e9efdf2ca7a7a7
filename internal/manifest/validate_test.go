package manifest

import (
	"strings"
	"testing"
)

const validManifest = `S. No.,Product Name,Input Image Urls
1,Shoe,"https://cdn.example.com/a.png,https://cdn.example.com/b.jpg"
2,Bag,https://cdn.example.com/c.webp
`

func TestValidateAcceptsWellFormedManifest(t *testing.T) {
	if diag := Validate(strings.NewReader(validManifest)); diag != "" {
		t.Fatalf("expected no diagnostic, got %q", diag)
	}
}

func TestValidateDiagnostics(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "wrong header",
			input: "No.,Name,Urls\n1,Shoe,https://x.test/a.png\n",
			want:  "Invalid CSV header format.",
		},
		{
			name:  "header case sensitive",
			input: "s. no.,product name,input image urls\n",
			want:  "Invalid CSV header format.",
		},
		{
			name:  "wrong column count",
			input: "S. No.,Product Name,Input Image Urls\n1,Shoe\n",
			want:  "Row 2 must have exactly 3 columns.",
		},
		{
			name:  "column count reports correct row",
			input: "S. No.,Product Name,Input Image Urls\n1,Shoe,https://x.test/a.png\n2,Bag,https://x.test/b.png,extra\n",
			want:  "Row 3 must have exactly 3 columns.",
		},
		{
			name:  "non numeric serial",
			input: "S. No.,Product Name,Input Image Urls\nabc,Shoe,https://x.test/a.png\n",
			want:  "Invalid 'S. No.' in row 2: abc",
		},
		{
			name:  "negative serial",
			input: "S. No.,Product Name,Input Image Urls\n-1,Shoe,https://x.test/a.png\n",
			want:  "Invalid 'S. No.' in row 2: -1",
		},
		{
			name:  "decimal serial",
			input: "S. No.,Product Name,Input Image Urls\n1.5,Shoe,https://x.test/a.png\n",
			want:  "Invalid 'S. No.' in row 2: 1.5",
		},
		{
			name:  "blank product name",
			input: "S. No.,Product Name,Input Image Urls\n1,   ,https://x.test/a.png\n",
			want:  "Product Name cannot be empty in row 2.",
		},
		{
			name:  "relative url",
			input: "S. No.,Product Name,Input Image Urls\n1,Shoe,/images/a.png\n",
			want:  "Invalid URL in row 2: /images/a.png",
		},
		{
			name:  "url without scheme",
			input: "S. No.,Product Name,Input Image Urls\n1,Shoe,example.com/a.png\n",
			want:  "Invalid URL in row 2: example.com/a.png",
		},
		{
			name:  "one bad url in a list",
			input: "S. No.,Product Name,Input Image Urls\n1,Shoe,\"https://x.test/a.png,not a url\"\n",
			want:  "Invalid URL in row 2: not a url",
		},
		{
			name:  "blank line between rows",
			input: "S. No.,Product Name,Input Image Urls\n1,Shoe,https://x.test/a.png\n\n2,Bag,https://x.test/b.png\n",
			want:  "Row 3 must have exactly 3 columns.",
		},
		{
			name:  "blank line after header",
			input: "S. No.,Product Name,Input Image Urls\n\n1,Shoe,https://x.test/a.png\n",
			want:  "Row 2 must have exactly 3 columns.",
		},
		{
			name:  "blank line before header",
			input: "\nS. No.,Product Name,Input Image Urls\n1,Shoe,https://x.test/a.png\n",
			want:  "Invalid CSV header format.",
		},
		{
			name:  "unreadable csv",
			input: "S. No.,Product Name,Input Image Urls\n1,\"Sho\"e,https://x.test/a.png\n",
			want:  "An error occurred during validation:",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			diag := Validate(strings.NewReader(c.input))
			if diag == "" {
				t.Fatalf("expected a diagnostic containing %q, got none", c.want)
			}
			if !strings.Contains(diag, c.want) {
				t.Fatalf("diagnostic %q does not contain %q", diag, c.want)
			}
		})
	}
}

func TestValidateAllowsQuotedMultilineName(t *testing.T) {
	// A record spanning physical lines is one row, not a gap.
	input := "S. No.,Product Name,Input Image Urls\n" +
		"1,\"Shoe\nDeluxe\",https://x.test/a.png\n" +
		"2,Bag,https://x.test/b.png\n"
	if diag := Validate(strings.NewReader(input)); diag != "" {
		t.Fatalf("expected no diagnostic, got %q", diag)
	}
}

func TestValidateFirstViolationWins(t *testing.T) {
	// Row 2 has a bad serial and a bad URL; the serial check comes first.
	input := "S. No.,Product Name,Input Image Urls\nx,Shoe,not-a-url\n"
	diag := Validate(strings.NewReader(input))
	if !strings.Contains(diag, "Invalid 'S. No.'") {
		t.Fatalf("expected the serial diagnostic first, got %q", diag)
	}
}
