package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanHTML(t *testing.T) {
	t.Run("strips tags and keeps text", func(t *testing.T) {
		got := CleanHTML("<p>Senior <b>Go</b> developer</p>")
		assert.Equal(t, "Senior Go developer", got)
	})

	t.Run("plain text passes through", func(t *testing.T) {
		got := CleanHTML("Backend developer, remote")
		assert.Equal(t, "Backend developer, remote", got)
	})

	t.Run("collapses whitespace", func(t *testing.T) {
		got := CleanHTML("<div>  Python\n\t developer  </div>\n<div>Moscow</div>")
		assert.Equal(t, "Python developer Moscow", got)
	})

	t.Run("drops script and style contents", func(t *testing.T) {
		got := CleanHTML("<style>p{color:red}</style><p>DevOps</p><script>alert(1)</script>")
		assert.Equal(t, "DevOps", got)
	})

	t.Run("tolerates malformed markup", func(t *testing.T) {
		got := CleanHTML("<p>QA engineer<div><b>manual")
		assert.Equal(t, "QA engineer manual", got)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, "", CleanHTML(""))
	})

	t.Run("deterministic", func(t *testing.T) {
		in := "<ul><li>Go</li><li>Postgres</li></ul>"
		assert.Equal(t, CleanHTML(in), CleanHTML(in))
	})
}
