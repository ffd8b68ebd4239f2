package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRemote(t *testing.T) {
	tests := []struct {
		remote string
		owner  string
		repo   string
	}{
		{"git@github.com:acme/widgets.git", "acme", "widgets"},
		{"https://github.com/acme/widgets", "acme", "widgets"},
		{"https://github.com/acme/widgets.git", "acme", "widgets"},
		{"ssh://git@github.com/acme/widgets.git", "acme", "widgets"},
	}
	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			owner, repo, err := ParseRemote(tt.remote)
			require.NoError(t, err)
			assert.Equal(t, tt.owner, owner)
			assert.Equal(t, tt.repo, repo)
		})
	}

	for _, bad := range []string{"", "widgets", "https://github.com/acme", "git@github.com:a/b/c.git"} {
		_, _, err := ParseRemote(bad)
		assert.Error(t, err, "remote %q", bad)
	}
}

func TestSplitDescription(t *testing.T) {
	title, body := SplitDescription("\n# Add login flow\n\n## Summary\n- adds login\n")
	assert.Equal(t, "Add login flow", title)
	assert.Equal(t, "## Summary\n- adds login", body)

	title, body = SplitDescription("Only a title")
	assert.Equal(t, "Only a title", title)
	assert.Equal(t, "", body)
}

func TestCreatePullRequest(t *testing.T) {
	var got map[string]interface{}
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/acme/widgets/pulls", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"number": 7, "html_url": "https://github.com/acme/widgets/pull/7"}`))
	}))
	defer srv.Close()

	c, err := NewClient("tok", srv.URL)
	require.NoError(t, err)

	url, err := c.CreatePullRequest(context.Background(), PullRequest{
		Owner: "acme", Repo: "widgets",
		Title: "Add login", Body: "body",
		Head: "feature/login", Base: "main",
		Draft: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "https://github.com/acme/widgets/pull/7", url)
	assert.Equal(t, "Bearer tok", auth)
	assert.Equal(t, "Add login", got["title"])
	assert.Equal(t, "feature/login", got["head"])
	assert.Equal(t, "main", got["base"])
	assert.Equal(t, true, got["draft"])
}

func TestCreatePullRequest_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message": "Validation Failed"}`))
	}))
	defer srv.Close()

	c, err := NewClient("", srv.URL)
	require.NoError(t, err)

	_, err = c.CreatePullRequest(context.Background(), PullRequest{Owner: "acme", Repo: "widgets"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating pull request")
}
