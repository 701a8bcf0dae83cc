package teatime_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teatime-io/teatime/pkg/teatime"
)

func TestParseLinkHeader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  teatime.Links
	}{
		{
			name:  "single next relation",
			input: `<https://gitlab.example.com/api/v4/projects?page=2>; rel="next"`,
			want:  teatime.Links{Next: "https://gitlab.example.com/api/v4/projects?page=2"},
		},
		{
			name: "all four relations",
			input: `<https://h/items?page=1>; rel="prev", <https://h/items?page=3>; rel="next", ` +
				`<https://h/items?page=1>; rel="first", <https://h/items?page=9>; rel="last"`,
			want: teatime.Links{
				Prev:  "https://h/items?page=1",
				Next:  "https://h/items?page=3",
				First: "https://h/items?page=1",
				Last:  "https://h/items?page=9",
			},
		},
		{
			name:  "leading comma before first entry",
			input: `, <https://h/items?page=2>; rel="next"`,
			want:  teatime.Links{Next: "https://h/items?page=2"},
		},
		{
			name:  "duplicate relation keeps the last",
			input: `<https://h/a>; rel="next", <https://h/b>; rel="next"`,
			want:  teatime.Links{Next: "https://h/b"},
		},
		{
			name:  "unknown relations are dropped",
			input: `<https://h/style.css>; rel="preload", <https://h/items?page=2>; rel="next"`,
			want:  teatime.Links{Next: "https://h/items?page=2"},
		},
		{
			name:  "only unknown relations leaves no links",
			input: `<https://h/style.css>; rel="preload"`,
			want:  teatime.Links{},
		},
		{
			name:  "whitespace around tokens",
			input: "\t <https://h/items?page=2> \t; \trel= \"next\" ",
			want:  teatime.Links{Next: "https://h/items?page=2"},
		},
		{
			name:  "no whitespace at all",
			input: `<https://h/items?page=2>;rel="next"`,
			want:  teatime.Links{Next: "https://h/items?page=2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			links, err := teatime.ParseLinkHeader(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, links)
		})
	}
}

func TestParseLinkHeader_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{name: "empty value", input: ""},
		{name: "only whitespace", input: "   "},
		{name: "only a comma", input: ","},
		{name: "missing angle brackets", input: `https://h/items; rel="next"`},
		{name: "unterminated URL", input: `<https://h/items; rel="next"`},
		{name: "missing semicolon", input: `<https://h/items> rel="next"`},
		{name: "missing rel attribute", input: `<https://h/items>; title="next"`},
		{name: "unquoted relation name", input: `<https://h/items>; rel=next`},
		{name: "unterminated relation name", input: `<https://h/items>; rel="next`},
		{name: "trailing garbage", input: `<https://h/items>; rel="next" trailing`},
		{name: "second entry malformed", input: `<https://h/a>; rel="next", <https://h/b>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := teatime.ParseLinkHeader(tt.input)
			require.Error(t, err)

			var parseErr *teatime.ParseError

			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, tt.input, parseErr.Input)
		})
	}
}

func TestParseLinkHeader_Repeatable(t *testing.T) {
	t.Parallel()

	input := `<https://h/x?page=1>; rel="prev", <https://h/x?page=3>; rel="next"`

	first, err := teatime.ParseLinkHeader(input)
	require.NoError(t, err)
	assert.Equal(t, teatime.Links{
		Prev: "https://h/x?page=1",
		Next: "https://h/x?page=3",
	}, first)

	second, err := teatime.ParseLinkHeader(input)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLinksFromHeader(t *testing.T) {
	t.Parallel()

	t.Run("missing header means no link information", func(t *testing.T) {
		t.Parallel()

		links, ok, err := teatime.LinksFromHeader(http.Header{})
		require.NoError(t, err)
		assert.False(t, ok)
		assert.True(t, links.IsZero())
	})

	t.Run("present header is parsed", func(t *testing.T) {
		t.Parallel()

		header := http.Header{}
		header.Set("Link", `<https://h/items?page=2>; rel="next"`)

		links, ok, err := teatime.LinksFromHeader(header)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, links.HasNext())
		assert.Equal(t, "https://h/items?page=2", links.Next)
	})

	t.Run("malformed header is an error, not silence", func(t *testing.T) {
		t.Parallel()

		header := http.Header{}
		header.Set("Link", "not a link header")

		_, ok, err := teatime.LinksFromHeader(header)
		require.Error(t, err)
		assert.False(t, ok)

		var parseErr *teatime.ParseError

		assert.ErrorAs(t, err, &parseErr)
	})
}
