package config

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func mustParse(t *testing.T, src string) Value {
	t.Helper()
	v, err := Parse("test", []byte(src), FormatYAML)
	require.NoError(t, err)
	return v
}

func TestMerge_SequencesAreReplaced(t *testing.T) {
	d := mustParse(t, "git:\n  exclude_files: [x, y]\n  unified: 10\n")
	o := mustParse(t, "git:\n  exclude_files: [z]\n")

	got := Merge(d, o)

	v, ok := got.Lookup("git", "exclude_files")
	require.True(t, ok)
	assert.Equal(t, []interface{}{"z"}, v.Interface())

	unified, ok := got.Lookup("git", "unified")
	require.True(t, ok)
	assert.Equal(t, 10, unified.Raw())
}

func TestMerge_NestedMapsMergeKeyByKey(t *testing.T) {
	d := mustParse(t, `
prompts:
  a: base a
  b: base b
terminal:
  theme: monokai
`)
	o := mustParse(t, `
prompts:
  b: user b
  c: user c
`)

	got := Merge(d, o)

	want := map[string]interface{}{
		"prompts":  map[string]interface{}{"a": "base a", "b": "user b", "c": "user c"},
		"terminal": map[string]interface{}{"theme": "monokai"},
	}
	if diff := cmp.Diff(want, got.Interface()); diff != "" {
		t.Errorf("Merge() mismatch (-want +got):\n%s", diff)
	}

	prompts, _ := got.Get("prompts")
	assert.Equal(t, []string{"a", "b", "c"}, prompts.Keys())
	assert.Equal(t, []string{"prompts", "terminal"}, got.Keys())
}

func TestMerge_ScalarAndKindMismatchReplace(t *testing.T) {
	d := mustParse(t, "a: 1\nb: {x: 1}\nc: [1, 2]\n")
	o := mustParse(t, "a: two\nb: flat\nc: {k: v}\n")

	got := Merge(d, o)

	want := map[string]interface{}{
		"a": "two",
		"b": "flat",
		"c": map[string]interface{}{"k": "v"},
	}
	if diff := cmp.Diff(want, got.Interface()); diff != "" {
		t.Errorf("Merge() mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_LastOverrideWins(t *testing.T) {
	d := mustParse(t, "model: {name: base, provider: openai}\n")
	a := mustParse(t, "model: {name: user}\n")
	b := mustParse(t, "model: {name: repo}\n")

	got := Merge(d, a, b)

	name, _ := got.Lookup("model", "name")
	provider, _ := got.Lookup("model", "provider")
	assert.Equal(t, "repo", name.String())
	assert.Equal(t, "openai", provider.String())
}

func TestMerge_IsAssociativeOverOverrides(t *testing.T) {
	d := mustParse(t, `
prompts: {a: "1", b: "2"}
git: {exclude_files: [x, y], unified: 3}
list: [1]
`)
	a := mustParse(t, `
prompts: {b: "3"}
git: {exclude_files: [z]}
list: {now: map}
`)
	b := mustParse(t, `
prompts: {c: "4"}
git: {unified: 5}
list: [9, 8]
`)

	all := Merge(d, a, b)
	stepwise := Merge(Merge(d, a), b)

	if diff := cmp.Diff(stepwise.Interface(), all.Interface()); diff != "" {
		t.Errorf("Merge(D, [A, B]) != Merge(Merge(D, [A]), [B]) (-stepwise +all):\n%s", diff)
	}
	assert.Equal(t, stepwise.Keys(), all.Keys())
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	d := mustParse(t, "git: {exclude_files: [x]}\nprompts: {a: one}\n")
	o := mustParse(t, "git: {exclude_files: [y]}\nprompts: {b: two}\n")
	before := d.Interface()
	beforeOverride := o.Interface()

	_ = Merge(d, o)

	if diff := cmp.Diff(before, d.Interface()); diff != "" {
		t.Errorf("defaults mutated (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff(beforeOverride, o.Interface()); diff != "" {
		t.Errorf("override mutated (-before +after):\n%s", diff)
	}
}

func TestMerge_NoOverrides(t *testing.T) {
	d := mustParse(t, "a: 1\n")
	got := Merge(d)
	assert.Equal(t, d.Interface(), got.Interface())
}

func TestParse_EmptyDocumentIsEmptyMap(t *testing.T) {
	for _, src := range []string{"", "   \n", "# only a comment\n"} {
		v, err := Parse("empty", []byte(src), FormatYAML)
		require.NoError(t, err)
		assert.True(t, v.IsMap())
		assert.Equal(t, 0, v.Len())
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		format Format
	}{
		{name: "bad yaml", src: "prompts: [unclosed", format: FormatYAML},
		{name: "top level sequence", src: "- a\n- b\n", format: FormatYAML},
		{name: "bad toml", src: "[model\nname = ", format: FormatTOML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("override.src", []byte(tt.src), tt.format)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfigParse)

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, "override.src", pe.Source)
			assert.Contains(t, err.Error(), "override.src")
		})
	}
}

func TestParse_TOML(t *testing.T) {
	v, err := Parse("user.toml", []byte("[model]\nname = \"gpt\"\n[git]\nexclude_files = [\"a\", \"b\"]\n"), FormatTOML)
	require.NoError(t, err)

	name, ok := v.Lookup("model", "name")
	require.True(t, ok)
	assert.Equal(t, "gpt", name.String())

	files, ok := v.Lookup("git", "exclude_files")
	require.True(t, ok)
	assert.Equal(t, KindSequence, files.Kind())
	assert.Equal(t, 2, files.Len())
}

func TestValue_MarshalYAMLKeepsOrder(t *testing.T) {
	v := mustParse(t, "zeta: 1\nalpha:\n  text: |-\n    line one\n    line two\n")

	out, err := yaml.Marshal(v)
	require.NoError(t, err)

	s := string(out)
	assert.Less(t, strings.Index(s, "zeta:"), strings.Index(s, "alpha:"))
	assert.Contains(t, s, "text: |-")

	back := mustParse(t, s)
	if diff := cmp.Diff(v.Interface(), back.Interface()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFromInterface_SortsKeys(t *testing.T) {
	v := FromInterface(map[string]interface{}{"b": 1, "a": []interface{}{"x"}})
	assert.Equal(t, []string{"a", "b"}, v.Keys())
}
