package symbol

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "nested js", in: "a/b.js", want: "a_b_js"},
		{name: "index", in: "index.html", want: "index_html"},
		{name: "upper case", in: "LOGO.png", want: "logo_png"},
		{name: "leading digit", in: "404.html", want: "f_404_html"},
		{name: "dashes and spaces", in: "css/main-v2 min.css", want: "css_main_v2_min_css"},
		{name: "underscore kept", in: "my_file.txt", want: "my_file_txt"},
		{name: "non ascii", in: "é.txt", want: "__txt"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestSanitizeDeterministicAndSafe(t *testing.T) {
	valid := regexp.MustCompile(`^[0-9a-z_]+$`)
	paths := []string{"a/b.js", "img/Logo-Big.PNG", "9lives/x.y.z", "fonts/Roboto Mono.woff2"}

	for _, p := range paths {
		first := Sanitize(p)
		assert.Equal(t, first, Sanitize(p), "same input must give same symbol")
		assert.Regexp(t, valid, first)
	}
}

func TestSanitizeKnownCollisions(t *testing.T) {
	assert.Equal(t, Sanitize("a-b.js"), Sanitize("a_b.js"))
	assert.Equal(t, Sanitize("App.js"), Sanitize("app.js"))
}
