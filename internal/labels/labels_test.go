package labels

import (
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestLoad(t *testing.T) {
	c := qt.New(t)

	path := filepath.Join(t.TempDir(), "labels_info.json")
	err := os.WriteFile(path, []byte(`{"labels": ["707-320", "727-200", "737-200"], "label_version": 1}`), 0o644)
	c.Assert(err, qt.IsNil)

	catalog, err := Load(path)
	c.Assert(err, qt.IsNil)
	c.Assert(catalog.Len(), qt.Equals, 3)
	c.Assert(catalog.Labels(), qt.DeepEquals, []string{"707-320", "727-200", "737-200"})

	label, err := catalog.Label(1)
	c.Assert(err, qt.IsNil)
	c.Assert(label, qt.Equals, "727-200")

	_, err = catalog.Label(3)
	c.Assert(err, qt.ErrorMatches, `label index 3 out of range \[0,3\)`)
	_, err = catalog.Label(-1)
	c.Assert(err, qt.IsNotNil)
}

func TestLoadFailures(t *testing.T) {
	c := qt.New(t)

	testCases := []struct {
		name    string
		content string
		pattern string
	}{
		{name: "malformed", content: `{"labels": [`, pattern: "parse label file: .*"},
		{name: "missing key", content: `{"classes": ["a"]}`, pattern: `parse label file: missing "labels" key`},
		{name: "empty", content: `{"labels": []}`, pattern: "label catalog is empty"},
	}

	for _, tc := range testCases {
		c.Run(tc.name, func(c *qt.C) {
			_, err := Parse([]byte(tc.content))
			c.Assert(err, qt.ErrorMatches, tc.pattern)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	c.Assert(err, qt.ErrorMatches, "read label file: .*")
}

func TestCatalogIsImmutable(t *testing.T) {
	c := qt.New(t)

	names := []string{"a", "b"}
	catalog, err := New(names)
	c.Assert(err, qt.IsNil)

	names[0] = "changed"
	got := catalog.Labels()
	got[1] = "changed"

	c.Assert(catalog.Labels(), qt.DeepEquals, []string{"a", "b"})
}
